package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

// point is a test type with a custom codec
type point struct {
	X, Y int32
}

// registerPoint installs the custom codec for point: each coordinate
// travels as its own frame
func registerPoint(r *Registry) {
	r.Register(point{},
		func(v any) (Header, [][]byte, error) {
			p := v.(point)
			x := make([]byte, 4)
			y := make([]byte, 4)
			byteOrder.PutUint32(x, uint32(p.X))
			byteOrder.PutUint32(y, uint32(p.Y))
			return Header{}, [][]byte{x, y}, nil
		},
		func(h Header, frames [][]byte) (any, error) {
			return point{
				X: int32(byteOrder.Uint32(frames[0])),
				Y: int32(byteOrder.Uint32(frames[1])),
			}, nil
		})
}

// TestCustomCodec tests that a registered per-type codec is preferred
// over the generic fallbacks
func TestCustomCodec(t *testing.T) {
	reg := NewRegistry()
	registerPoint(reg)

	h, frames, err := reg.Serialize(point{X: 3, Y: -7})
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if h.Type != TypeName(point{}) {
		t.Errorf("Header type doesn't name the registered type: %q", h.Type)
	}
	if len(frames) != 2 {
		t.Fatalf("Custom codec should produce 2 frames, got %d", len(frames))
	}

	v, err := reg.Deserialize(h, frames)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if v != (point{X: 3, Y: -7}) {
		t.Errorf("Value doesn't match after round trip: %+v", v)
	}
}

// TestGenericFallback tests that unregistered values fall through to the
// generic codecs
func TestGenericFallback(t *testing.T) {
	reg := NewRegistry()
	msg := map[string]any{"op": "status", "count": 3}

	h, frames, err := reg.Serialize(msg)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if h.Type != CodecGob {
		t.Errorf("Expected gob fallback for unregistered type, got %q", h.Type)
	}

	v, err := reg.Deserialize(h, frames)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	result, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("Expected map after round trip, got %T", v)
	}
	if result["op"] != "status" {
		t.Errorf("Map content doesn't match: %+v", result)
	}
}

// TestExplicitChain tests that the caller's codec chain overrides the
// default order
func TestExplicitChain(t *testing.T) {
	reg := NewRegistry()

	h, frames, err := reg.Serialize(map[string]any{"k": "v"}, CodecMsgpack)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if h.Type != CodecMsgpack {
		t.Errorf("Expected msgpack, got %q", h.Type)
	}
	if _, err := reg.Deserialize(h, frames); err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
}

// TestSerializationError tests that a value no codec accepts reports all
// attempted codecs
func TestSerializationError(t *testing.T) {
	reg := NewRegistry()

	// channels are not encodable by any generic codec
	_, _, err := reg.Serialize(map[string]any{"ch": make(chan int)}, CodecNative, CodecGob, CodecMsgpack)
	if err == nil {
		t.Fatal("Expected error for unserializable value")
	}
	var se *SerializationError
	if !errors.As(err, &se) {
		t.Fatalf("Expected SerializationError, got %T: %v", err, err)
	}
	if len(se.Codecs) != 3 {
		t.Errorf("Error should list the attempted chain, got %v", se.Codecs)
	}
}

// TestSerializedPassthrough tests that an already-serialized value is
// not encoded again
func TestSerializedPassthrough(t *testing.T) {
	reg := NewRegistry()
	s := Serialized{
		Header: Header{Type: CodecMsgpack},
		Frames: [][]byte{[]byte("opaque")},
	}

	h, frames, err := reg.Serialize(s)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if !reflect.DeepEqual(h, s.Header) {
		t.Errorf("Header was modified on passthrough: %+v", h)
	}
	if len(frames) != 1 || !bytes.Equal(frames[0], s.Frames[0]) {
		t.Errorf("Frames were modified on passthrough")
	}
}

// TestBytesIdentity tests that raw byte buffers travel as their own
// frame without an encoding pass
func TestBytesIdentity(t *testing.T) {
	reg := NewRegistry()
	buf := []byte("raw payload bytes")

	h, frames, err := reg.Serialize(buf)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if h.Type != "bytes" {
		t.Errorf("Expected bytes codec, got %q", h.Type)
	}
	if len(frames) != 1 || &frames[0][0] != &buf[0] {
		t.Errorf("Byte buffer should travel as its own frame without copying")
	}

	v, err := reg.Deserialize(h, frames)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !bytes.Equal(v.([]byte), buf) {
		t.Errorf("Buffer doesn't match after round trip")
	}
}

// TestLazyRegistration tests that a lazy callback runs at most once and
// that the retried lookup then succeeds
func TestLazyRegistration(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.RegisterLazy("github.com/tkoeppen/taskwire/protocol", func(r *Registry) {
		calls++
		registerPoint(r)
	})

	for i := 0; i < 3; i++ {
		h, frames, err := reg.Serialize(point{X: int32(i), Y: 1})
		if err != nil {
			t.Fatalf("Serialize %d failed: %v", i, err)
		}
		if h.Type != TypeName(point{}) {
			t.Fatalf("Serialize %d did not use the lazily registered codec: %q", i, h.Type)
		}
		if _, err := reg.Deserialize(h, frames); err != nil {
			t.Fatalf("Deserialize %d failed: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("Lazy registration ran %d times, want 1", calls)
	}
}

// TestUnknownType tests decoding a header naming a type the registry
// has never seen
func TestUnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Deserialize(Header{Type: "example.com/pkg.Missing"}, [][]byte{{1}})
	var ue *UnknownTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UnknownTypeError, got %T: %v", err, err)
	}
}

// TestTypeName tests the fully-qualified naming scheme
func TestTypeName(t *testing.T) {
	tests := map[string]struct {
		value any
		want  string
	}{
		"named type":  {point{}, "github.com/tkoeppen/taskwire/protocol.point"},
		"byte slice":  {[]byte{1}, "bytes"},
		"unnamed map": {map[string]int{}, "map[string]int"},
		"nil":         {nil, "nil"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := TypeName(tc.value); got != tc.want {
				t.Errorf("TypeName(%T) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}
