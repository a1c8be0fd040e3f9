package protocol

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Header carries the serialization metadata for one frame sequence. It
// is owned by the sender and reconstructed by the receiver from the
// first decoded frame; it never surfaces to callers of the comm layer.
type Header struct {
	// Type is the codec that produced the frames: a generic codec name
	// ("gob", "msgpack") or a fully-qualified registered type name.
	Type string `msgpack:"type,omitempty"`

	// Compression holds the per-frame compressor name, CompressionNone
	// for frames stored raw. Its length equals Count once the frames
	// have been through MaybeCompress.
	Compression []string `msgpack:"compression,omitempty"`

	// Count is the number of payload frames following the header.
	Count int `msgpack:"count,omitempty"`

	// Meta carries codec-specific metadata for custom serializers.
	Meta map[string]any `msgpack:"meta,omitempty"`
}

// encodeHeader produces the wire form of a header (msgpack).
func encodeHeader(h Header) ([]byte, error) {
	return msgpack.Marshal(h)
}

// decodeHeader is the inverse of encodeHeader. An empty buffer decodes
// to the zero header.
func decodeHeader(b []byte) (Header, error) {
	var h Header
	if len(b) == 0 {
		return h, nil
	}
	if err := msgpack.Unmarshal(b, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}
