package protocol

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

// compressibleFrame builds a frame that any real compressor shrinks
func compressibleFrame(size int) []byte {
	frame := make([]byte, size)
	for i := range frame {
		frame[i] = byte(i % 16)
	}
	return frame
}

// TestMaybeCompressRoundTrip tests that every registered compressor
// round-trips a large compressible frame
func TestMaybeCompressRoundTrip(t *testing.T) {
	frame := compressibleFrame(100_000)

	for _, name := range []string{"lz4", "zstd", "snappy"} {
		t.Run(name, func(t *testing.T) {
			used, compressed := MaybeCompress(frame, name)
			if used != name {
				t.Fatalf("Expected frame to be compressed with %s, got %q", name, used)
			}
			if len(compressed) >= len(frame) {
				t.Fatalf("Compressed frame is not smaller: %d >= %d", len(compressed), len(frame))
			}

			out, err := DecompressFrames(
				Header{Compression: []string{used}}, [][]byte{compressed})
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if !bytes.Equal(out[0], frame) {
				t.Errorf("Frame doesn't match after compression round trip")
			}
		})
	}
}

// TestMaybeCompressSkips tests the cases where a frame must be stored raw
func TestMaybeCompressSkips(t *testing.T) {
	t.Run("small frame", func(t *testing.T) {
		frame := compressibleFrame(100)
		used, out := MaybeCompress(frame, "lz4")
		if used != CompressionNone {
			t.Errorf("Small frame should not be compressed, got %q", used)
		}
		if !bytes.Equal(out, frame) {
			t.Errorf("Small frame should pass through unchanged")
		}
	})

	t.Run("incompressible frame", func(t *testing.T) {
		frame := make([]byte, 100_000)
		if _, err := rand.Read(frame); err != nil {
			t.Fatalf("Failed to generate random frame: %v", err)
		}
		used, out := MaybeCompress(frame, "lz4")
		if used != CompressionNone {
			t.Errorf("Random frame should not shrink enough to keep, got %q", used)
		}
		if !bytes.Equal(out, frame) {
			t.Errorf("Incompressible frame should pass through unchanged")
		}
	})

	t.Run("compression disabled", func(t *testing.T) {
		frame := compressibleFrame(100_000)
		used, out := MaybeCompress(frame, CompressionNone)
		if used != CompressionNone || !bytes.Equal(out, frame) {
			t.Errorf("Disabled compression should pass the frame through")
		}
	})
}

// TestDecompressFrames tests the per-frame compression table handling
func TestDecompressFrames(t *testing.T) {
	t.Run("mixed table", func(t *testing.T) {
		big := compressibleFrame(50_000)
		usedName, compressed := MaybeCompress(big, "zstd")
		if usedName != "zstd" {
			t.Fatalf("Expected zstd compression, got %q", usedName)
		}

		frames := [][]byte{[]byte("raw"), compressed}
		out, err := DecompressFrames(Header{Compression: []string{CompressionNone, "zstd"}}, frames)
		if err != nil {
			t.Fatalf("Failed to decompress mixed table: %v", err)
		}
		if !bytes.Equal(out[0], []byte("raw")) {
			t.Errorf("Raw frame was modified")
		}
		if !bytes.Equal(out[1], big) {
			t.Errorf("Compressed frame doesn't match after decompression")
		}
	})

	t.Run("empty table passes through", func(t *testing.T) {
		frames := [][]byte{[]byte("a"), []byte("b")}
		out, err := DecompressFrames(Header{}, frames)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !bytes.Equal(out[0], frames[0]) || !bytes.Equal(out[1], frames[1]) {
			t.Errorf("Frames modified despite empty compression table")
		}
	})

	t.Run("unknown compressor", func(t *testing.T) {
		_, err := DecompressFrames(Header{Compression: []string{"bogus"}}, [][]byte{[]byte("x")})
		var ue *UnknownCompressorError
		if !errors.As(err, &ue) {
			t.Fatalf("Expected UnknownCompressorError, got %T: %v", err, err)
		}
	})
}
