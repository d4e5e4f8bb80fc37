// Package record implements the DHT record envelope and the capability
// interface the swarm coordinator uses to persist and retrieve it, per
// spec §4.2.
package record

import (
	"encoding/base64"
	"time"

	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"

	"kiss/internal/kisserrors"
)

// Record is the in-memory form of a DHT record: an opaque key, the blob
// bytes, an optional publisher identity, and an optional expiry instant.
type Record struct {
	Key       string
	Value     []byte
	Publisher string // base58 peer id, empty if absent
	Expires   *time.Time
}

// envelope is the YAML-serialized on-disk form. Expires is stored as a
// duration relative to serialization time, matching spec §3's documented
// (lossy) behavior across process restarts.
type envelope struct {
	Key       string  `yaml:"key"`
	Publisher string  `yaml:"publisher,omitempty"`
	Expires   *int64  `yaml:"expires,omitempty"` // seconds remaining at serialization time
	Value     string  `yaml:"value"`             // base64
}

// MarshalEnvelope renders r into its on-disk YAML form.
func MarshalEnvelope(r Record) ([]byte, error) {
	env := envelope{
		Key:       r.Key,
		Publisher: r.Publisher,
		Value:     base64.StdEncoding.EncodeToString(r.Value),
	}
	if r.Expires != nil {
		remaining := int64(time.Until(*r.Expires).Seconds())
		env.Expires = &remaining
	}
	data, err := yaml.Marshal(env)
	if err != nil {
		return nil, kisserrors.Wrap(err, "record envelope marshal failed")
	}
	return data, nil
}

// UnmarshalEnvelope parses the on-disk YAML form back into a Record.
func UnmarshalEnvelope(data []byte) (Record, error) {
	var env envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return Record{}, kisserrors.Wrap(err, "record envelope unmarshal failed")
	}
	value, err := base64.StdEncoding.DecodeString(env.Value)
	if err != nil {
		return Record{}, kisserrors.Wrap(err, "record value base64 decode failed")
	}
	r := Record{Key: env.Key, Publisher: env.Publisher, Value: value}
	if env.Expires != nil {
		when := time.Now().Add(time.Duration(*env.Expires) * time.Second)
		r.Expires = &when
	}
	return r, nil
}

// ValidatePublisher checks that a publisher string, when present, decodes
// as valid base58 peer-id text.
func ValidatePublisher(publisher string) error {
	if publisher == "" {
		return nil
	}
	_, err := base58.Decode(publisher)
	if err != nil {
		return kisserrors.Wrap(err, "invalid base58 publisher id")
	}
	return nil
}

// Expired reports whether r's expiry, if set, has passed as of now.
func (r Record) Expired(now time.Time) bool {
	return r.Expires != nil && now.After(*r.Expires)
}
