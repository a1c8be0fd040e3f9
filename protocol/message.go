package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// valueHeader describes one extracted value inside a message envelope.
type valueHeader struct {
	Path        []any    `msgpack:"path"`
	Header      Header   `msgpack:"header"`
	Count       int      `msgpack:"count"`
	Compression []string `msgpack:"compression,omitempty"`
	Raw         bool     `msgpack:"raw,omitempty"`
}

// messageHeader is frame 0 of every message on a stream transport.
type messageHeader struct {
	MainCompression string        `msgpack:"main-compression,omitempty"`
	Values          []valueHeader `msgpack:"values,omitempty"`
}

// EncodeMessage converts a nested message into its wire frame sequence:
//
//	frame 0: msgpack message header (paths, value headers, compression)
//	frame 1: msgpack of the stripped message, maybe compressed
//	frame 2..: the extracted values' frames, split and maybe compressed
//
// Large or marked sub-values bypass the generic codec entirely; the
// rest of the message travels as one compact msgpack body.
func EncodeMessage(reg *Registry, msg any) ([][]byte, error) {
	reg = orDefault(reg)
	stripped, values, rawPaths := Extract(msg)

	body, err := msgpack.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("encoding message body: %w", err)
	}
	bodyCompression, body := MaybeCompress(body, DefaultCompression)

	head := messageHeader{MainCompression: bodyCompression}
	frames := [][]byte{nil, body}

	raw := make(map[string]bool, len(rawPaths))
	for _, p := range rawPaths {
		raw[p.String()] = true
	}

	for _, pv := range values {
		h, valueFrames, err := reg.Serialize(pv.Value)
		if err != nil {
			return nil, err
		}
		valueFrames = SplitFrames(valueFrames, DefaultChunkSize)

		compression := make([]string, len(valueFrames))
		for i, f := range valueFrames {
			compression[i], valueFrames[i] = MaybeCompress(f, DefaultCompression)
		}

		head.Values = append(head.Values, valueHeader{
			Path:        pv.Path,
			Header:      h,
			Count:       len(valueFrames),
			Compression: compression,
			Raw:         raw[pv.Path.String()],
		})
		frames = append(frames, valueFrames...)
	}

	frames[0], err = msgpack.Marshal(head)
	if err != nil {
		return nil, fmt.Errorf("encoding message header: %w", err)
	}
	return frames, nil
}

// DecodeMessage is the inverse of EncodeMessage. With deserialize set,
// every extracted value is decoded back into its object and planted at
// its original path. Without it, extracted values are planted as
// Serialized placeholders (raw buffers are always decoded, they carry
// no codec state worth deferring).
func DecodeMessage(reg *Registry, frames [][]byte, deserialize bool) (any, error) {
	reg = orDefault(reg)
	if len(frames) < 2 {
		return nil, &FramingError{Reason: fmt.Sprintf("message needs at least 2 frames, got %d", len(frames))}
	}

	var head messageHeader
	if err := msgpack.Unmarshal(frames[0], &head); err != nil {
		return nil, fmt.Errorf("decoding message header: %w", err)
	}

	body := frames[1]
	if head.MainCompression != CompressionNone {
		decompressed, err := DecompressFrames(
			Header{Compression: []string{head.MainCompression}}, [][]byte{body})
		if err != nil {
			return nil, err
		}
		body = decompressed[0]
	}
	var msg any
	if err := msgpack.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decoding message body: %w", err)
	}

	pos := 2
	for _, vh := range head.Values {
		if pos+vh.Count > len(frames) {
			return nil, &FramingError{Reason: "message header declares more value frames than received"}
		}
		valueFrames := frames[pos : pos+vh.Count]
		pos += vh.Count

		path, err := normalizePath(vh.Path)
		if err != nil {
			return nil, err
		}

		h := vh.Header
		h.Compression = vh.Compression
		h.Count = vh.Count

		if deserialize || vh.Raw {
			value, err := Serialized{Header: h, Frames: valueFrames}.Deserialize(reg)
			if err != nil {
				return nil, err
			}
			Plant(msg, path, value)
		} else {
			Plant(msg, path, Serialized{Header: h, Frames: valueFrames})
		}
	}
	return msg, nil
}

// normalizePath fixes up path elements after a msgpack round trip,
// where list indices come back as assorted integer widths.
func normalizePath(raw []any) (Path, error) {
	path := make(Path, len(raw))
	for i, e := range raw {
		switch n := e.(type) {
		case string:
			path[i] = n
		case int:
			path[i] = n
		case int8:
			path[i] = int(n)
		case int16:
			path[i] = int(n)
		case int32:
			path[i] = int(n)
		case int64:
			path[i] = int(n)
		case uint8:
			path[i] = int(n)
		case uint16:
			path[i] = int(n)
		case uint32:
			path[i] = int(n)
		case uint64:
			path[i] = int(n)
		default:
			return nil, fmt.Errorf("invalid path element %T in message header", e)
		}
	}
	return path, nil
}

// MarshalFrames runs the single-value pipeline: serialize, split to the
// chunk size, compress per frame, and prepend the encoded header as its
// own leading frame.
func MarshalFrames(reg *Registry, v any) ([][]byte, error) {
	h, frames, err := orDefault(reg).Serialize(v)
	if err != nil {
		return nil, err
	}
	frames = SplitFrames(frames, DefaultChunkSize)

	compression := make([]string, len(frames))
	for i, f := range frames {
		compression[i], frames[i] = MaybeCompress(f, DefaultCompression)
	}
	h.Compression = compression
	h.Count = len(frames)

	hb, err := encodeHeader(h)
	if err != nil {
		return nil, err
	}
	return append([][]byte{hb}, frames...), nil
}

// Marshal is MarshalFrames plus the length-prefixed wire framing,
// yielding a single self-contained buffer.
func Marshal(reg *Registry, v any) ([]byte, error) {
	frames, err := MarshalFrames(reg, v)
	if err != nil {
		return nil, err
	}
	return PackFrames(frames), nil
}

// Unmarshal is the exact inverse of Marshal: unpack the wire framing,
// decode the header frame, decompress the remaining frames per its
// table, and decode through the registry.
func Unmarshal(reg *Registry, b []byte) (any, error) {
	frames, err := UnpackFrames(b)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, &FramingError{Reason: "empty frame sequence"}
	}
	h, err := decodeHeader(frames[0])
	if err != nil {
		return nil, fmt.Errorf("decoding header frame: %w", err)
	}
	payload, err := DecompressFrames(h, frames[1:])
	if err != nil {
		return nil, err
	}
	return orDefault(reg).Deserialize(h, payload)
}
