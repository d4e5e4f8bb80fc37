// Package malice implements the optional background corruptor used to
// measure how quickly the auditor detects lost custody, per spec §4.6.
package malice

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"kiss/internal/record"
)

// Behavior selects which records a Harness deletes each cycle, matching
// spec §4.6's three named variants.
type Behavior string

const (
	// BehaviorNone never deletes anything; the harness is a no-op.
	BehaviorNone Behavior = "none"
	// BehaviorDeleteAll wipes every locally held record each cycle.
	BehaviorDeleteAll Behavior = "delete_all"
	// BehaviorDeleteLast deletes only the most recently stored record each
	// cycle.
	BehaviorDeleteLast Behavior = "delete_last"
)

// Deletion records when a key was corrupted, so the detection-latency
// measurement in spec §8 can compare it against the next audit claim.
type Deletion struct {
	Key string
	At  time.Time
}

// Harness periodically corrupts the local record store according to
// Behavior.
type Harness struct {
	store    record.Store
	behavior Behavior
	interval time.Duration
	logger   *logrus.Logger

	lastPut string // key most recently observed via Track, for DeleteLast

	deletions []Deletion
}

// New builds a Harness. A BehaviorNone harness's Run deletes nothing and
// returns once ctx is canceled.
func New(store record.Store, behavior Behavior, interval time.Duration, logger *logrus.Logger) *Harness {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Harness{store: store, behavior: behavior, interval: interval, logger: logger}
}

// Track records key as the most recently stored record, for DeleteLast to
// target. Callers should invoke this from the same path that calls
// record.Store.Put.
func (h *Harness) Track(key string) {
	h.lastPut = key
}

// Deletions returns every corruption this harness has performed so far.
func (h *Harness) Deletions() []Deletion {
	out := make([]Deletion, len(h.deletions))
	copy(out, h.deletions)
	return out
}

// Run corrupts records on a schedule until ctx is canceled.
func (h *Harness) Run(ctx context.Context) error {
	if h.behavior == BehaviorNone {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.corrupt(ctx)
		}
	}
}

func (h *Harness) corrupt(ctx context.Context) {
	switch h.behavior {
	case BehaviorDeleteAll:
		keys, err := h.store.List(ctx)
		if err != nil {
			h.logger.WithError(err).Warn("malice harness: failed to list records")
			return
		}
		for _, key := range keys {
			h.deleteKey(ctx, key)
		}
	case BehaviorDeleteLast:
		if h.lastPut == "" {
			return
		}
		h.deleteKey(ctx, h.lastPut)
		h.lastPut = ""
	}
}

func (h *Harness) deleteKey(ctx context.Context, key string) {
	if err := h.store.Remove(ctx, key); err != nil {
		h.logger.WithError(err).Warnf("malice harness: failed to delete %q", key)
		return
	}
	h.deletions = append(h.deletions, Deletion{Key: key, At: time.Now().UTC()})
	h.logger.Warnf("malice harness deleted record %q", key)
}
