package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// CompressionNone in a header's compression table means the frame
	// was stored raw.
	CompressionNone = ""

	// DefaultCompression is the compressor tried for outgoing frames.
	DefaultCompression = "lz4"

	// minCompressSize is the frame size below which compression is not
	// even attempted.
	minCompressSize = 10_000

	// maxCompressRatio: a compressed frame is kept only if it shrank
	// below this fraction of the original.
	maxCompressRatio = 0.9
)

// Compressor is a symmetric per-frame compression codec.
type Compressor struct {
	Compress   func(src []byte) ([]byte, error)
	Decompress func(src []byte) ([]byte, error)
}

var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
var zstdDecoder, _ = zstd.NewReader(nil)

// compressors maps a wire name to its implementation. Extended via
// RegisterCompressor during startup; read-mostly afterwards.
var compressors = map[string]Compressor{
	"lz4": {
		Compress: func(src []byte) ([]byte, error) {
			var buf bytes.Buffer
			zw := lz4.NewWriter(&buf)
			if _, err := zw.Write(src); err != nil {
				return nil, err
			}
			if err := zw.Close(); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		Decompress: func(src []byte) ([]byte, error) {
			return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
		},
	},
	"zstd": {
		Compress: func(src []byte) ([]byte, error) {
			return zstdEncoder.EncodeAll(src, nil), nil
		},
		Decompress: func(src []byte) ([]byte, error) {
			return zstdDecoder.DecodeAll(src, nil)
		},
	},
	"snappy": {
		Compress: func(src []byte) ([]byte, error) {
			return snappy.Encode(nil, src), nil
		},
		Decompress: func(src []byte) ([]byte, error) {
			return snappy.Decode(nil, src)
		},
	},
}

// RegisterCompressor makes a compressor available under the given wire
// name. Registering an existing name overwrites it.
func RegisterCompressor(name string, c Compressor) {
	compressors[name] = c
}

// MaybeCompress attempts to compress a frame with the named compressor.
// The frame is stored raw when it is below the minimum size, when the
// compressor fails, or when compression does not shrink it to under 90%
// of the original. The returned name is CompressionNone for raw frames.
func MaybeCompress(frame []byte, compression string) (string, []byte) {
	if compression == CompressionNone || len(frame) < minCompressSize {
		return CompressionNone, frame
	}
	c, ok := compressors[compression]
	if !ok {
		return CompressionNone, frame
	}
	compressed, err := c.Compress(frame)
	if err != nil || len(compressed) >= int(float64(len(frame))*maxCompressRatio) {
		return CompressionNone, frame
	}
	return compression, compressed
}

// DecompressFrames applies the inverse of a header's per-frame
// compression table. Frames marked CompressionNone pass through
// untouched. A table shorter than the frame sequence leaves the
// remaining frames raw.
func DecompressFrames(header Header, frames [][]byte) ([][]byte, error) {
	if len(header.Compression) == 0 {
		return frames, nil
	}
	out := make([][]byte, len(frames))
	for i, f := range frames {
		if i >= len(header.Compression) || header.Compression[i] == CompressionNone {
			out[i] = f
			continue
		}
		name := header.Compression[i]
		c, ok := compressors[name]
		if !ok {
			return nil, &UnknownCompressorError{Name: name}
		}
		raw, err := c.Decompress(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing frame %d with %s: %w", i, name, err)
		}
		out[i] = raw
	}
	return out, nil
}
