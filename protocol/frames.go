package protocol

import (
	"encoding/binary"
)

// byteOrder is the byte order of every integer on the wire. Fixed so
// both ends agree regardless of host architecture.
var byteOrder = binary.LittleEndian

// DefaultChunkSize bounds the size of a single frame on the wire. Frames
// larger than this are split by SplitFrames before compression.
const DefaultChunkSize = 64 << 20 // 64 MiB

// PackFrames encodes a frame sequence as a single contiguous buffer:
// an 8-byte frame count, one 8-byte length per frame, then the raw
// frame bytes back to back. Frame order is preserved.
func PackFrames(frames [][]byte) []byte {
	total := 8 + 8*len(frames)
	for _, f := range frames {
		total += len(f)
	}

	buf := make([]byte, total)
	byteOrder.PutUint64(buf[:8], uint64(len(frames)))
	pos := 8
	for _, f := range frames {
		byteOrder.PutUint64(buf[pos:pos+8], uint64(len(f)))
		pos += 8
	}
	for _, f := range frames {
		copy(buf[pos:], f)
		pos += len(f)
	}
	return buf
}

// UnpackFrames is the exact inverse of PackFrames. The returned frames
// alias the input buffer; they are not copies. A buffer with fewer bytes
// than its length table declares yields a FramingError, never a partial
// result.
func UnpackFrames(buf []byte) ([][]byte, error) {
	if len(buf) < 8 {
		return nil, &FramingError{Reason: "buffer too short for frame count"}
	}
	count := byteOrder.Uint64(buf[:8])
	pos := uint64(8)

	if uint64(len(buf)) < 8+8*count {
		return nil, &FramingError{Reason: "buffer too short for length table"}
	}
	lengths := make([]uint64, count)
	for i := range lengths {
		lengths[i] = byteOrder.Uint64(buf[pos : pos+8])
		pos += 8
	}

	frames := make([][]byte, count)
	for i, length := range lengths {
		if uint64(len(buf))-pos < length {
			return nil, &FramingError{Reason: "declared frame length exceeds available bytes"}
		}
		frames[i] = buf[pos : pos+length]
		pos += length
	}
	return frames, nil
}

// SplitFrame cuts a frame into chunks of at most max bytes. The chunks
// are subslices of the original frame, no bytes are copied. An empty
// frame is returned as-is.
func SplitFrame(frame []byte, max int) [][]byte {
	if max <= 0 || len(frame) <= max {
		return [][]byte{frame}
	}
	parts := make([][]byte, 0, (len(frame)+max-1)/max)
	for len(frame) > max {
		parts = append(parts, frame[:max])
		frame = frame[max:]
	}
	return append(parts, frame)
}

// SplitFrames applies SplitFrame to every frame in a sequence,
// preserving order.
func SplitFrames(frames [][]byte, max int) [][]byte {
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		out = append(out, SplitFrame(f, max)...)
	}
	return out
}

// concatFrames joins a frame sequence into one buffer. When the sequence
// is a single frame it is returned without copying.
func concatFrames(frames [][]byte) []byte {
	if len(frames) == 1 {
		return frames[0]
	}
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	buf := make([]byte, 0, total)
	for _, f := range frames {
		buf = append(buf, f...)
	}
	return buf
}
