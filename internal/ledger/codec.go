package ledger

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// gobCodec is a minimal grpc codec for the ledger's request/response
// structs. The upstream ledger speaks immudb's protobuf schema directly;
// here the wire messages are our own Go structs, so gob (not protobuf) is
// the natural encoding/grpc codec pairing. internal/rpc registers the same
// "gob" codec name for the façade's messages.
type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return "gob" }

func init() {
	encoding.RegisterCodec(gobCodec{})
}
