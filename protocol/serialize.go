package protocol

import (
	"bytes"
	"encoding/gob"
	"reflect"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// CodecNative selects per-type hooks from the registry.
	CodecNative = "native"
	// CodecGob is the generalist fallback for arbitrary Go values.
	CodecGob = "gob"
	// CodecMsgpack is the compact generic codec for plain data.
	CodecMsgpack = "msgpack"

	// bytesTypeName is the registered name of the raw byte-buffer codec.
	bytesTypeName = "bytes"
)

// DefaultChain is the codec order tried when the caller does not pick
// one explicitly.
var DefaultChain = []string{CodecNative, CodecGob}

// SerializeFunc converts a value into a header and frame sequence.
type SerializeFunc func(v any) (Header, [][]byte, error)

// DeserializeFunc is the inverse of a SerializeFunc.
type DeserializeFunc func(h Header, frames [][]byte) (any, error)

type codecPair struct {
	serialize   SerializeFunc
	deserialize DeserializeFunc
}

// genericCodec is a whole-value codec with no per-type knowledge.
type genericCodec struct {
	encode func(v any) ([]byte, error)
	decode func(b []byte) (any, error)
}

var genericCodecs = map[string]genericCodec{
	CodecGob: {
		encode: func(v any) ([]byte, error) {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
		decode: func(b []byte) (any, error) {
			var v any
			if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
				return nil, err
			}
			return v, nil
		},
	},
	CodecMsgpack: {
		encode: func(v any) ([]byte, error) {
			return msgpack.Marshal(v)
		},
		decode: func(b []byte) (any, error) {
			var v any
			if err := msgpack.Unmarshal(b, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	},
}

func init() {
	// Concrete types the gob fallback must be able to carry inside an
	// interface slot. Callers register their own types the same way.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register([]byte(nil))
	gob.Register(time.Time{})
}

// Registry maps fully-qualified type names to codec pairs. It is
// append-only via Register and safe for concurrent lookups; create
// isolated instances in tests with NewRegistry.
type Registry struct {
	codecs *xsync.MapOf[string, codecPair]
	lazy   *xsync.MapOf[string, func(*Registry)]
}

// NewRegistry returns a registry with only the built-in raw byte-buffer
// codec installed.
func NewRegistry() *Registry {
	r := &Registry{
		codecs: xsync.NewMapOf[string, codecPair](),
		lazy:   xsync.NewMapOf[string, func(*Registry)](),
	}
	r.registerBuiltins()
	return r
}

// DefaultRegistry is the process-wide registry used when a component is
// not handed an explicit one.
var DefaultRegistry = NewRegistry()

// TypeName returns the fully-qualified name a value is registered
// under: the package path plus type name for named types, the Go type
// syntax for unnamed ones. Raw byte slices get the fixed name "bytes".
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	if t == bytesType {
		return bytesTypeName
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

var bytesType = reflect.TypeOf([]byte(nil))

// typePackage returns the package-path prefix of a fully-qualified type
// name, the namespace lazy registrations are keyed by. Names without a
// package ("bytes", "[]int") have no namespace.
func typePackage(name string) string {
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return ""
	}
	return name[:slash+1+dot]
}

// Register installs a serialize/deserialize pair for a type. The key is
// the value's fully-qualified type name; typeOrName may be a sample
// value or the name itself. Registering twice overwrites.
func (r *Registry) Register(typeOrName any, ser SerializeFunc, des DeserializeFunc) {
	name, ok := typeOrName.(string)
	if !ok {
		name = TypeName(typeOrName)
	}
	r.codecs.Store(name, codecPair{serialize: ser, deserialize: des})
}

// RegisterLazy records a callback to run the first time a type in the
// given package is looked up without being registered. The callback runs
// at most once; it is removed before being invoked so a recursive lookup
// cannot trigger it again.
func (r *Registry) RegisterLazy(pkg string, fn func(*Registry)) {
	r.lazy.Store(pkg, fn)
}

// runLazy fires the lazy registration for a type name's package, if one
// is pending. Reports whether a callback ran.
func (r *Registry) runLazy(typeName string) bool {
	pkg := typePackage(typeName)
	if pkg == "" {
		return false
	}
	fn, ok := r.lazy.LoadAndDelete(pkg)
	if !ok {
		return false
	}
	fn(r)
	return true
}

// Serialize converts a value to a header and frame sequence using the
// first codec in the chain that accepts it. A Serialized placeholder
// passes through unchanged, a ToSerialize marker is unwrapped first.
// The chain defaults to [native, gob]; generic
// codec names ("gob", "msgpack") may be mixed in freely.
func (r *Registry) Serialize(v any, chain ...string) (Header, [][]byte, error) {
	if s, ok := v.(Serialized); ok {
		return s.Header, s.Frames, nil
	}
	if m, ok := v.(ToSerialize); ok {
		v = m.Data
	}
	if len(chain) == 0 {
		chain = DefaultChain
	}

	var causes []error
	for _, codec := range chain {
		switch {
		case codec == CodecNative:
			name := TypeName(v)
			if pair, ok := r.codecs.Load(name); ok {
				h, frames, err := pair.serialize(v)
				if err != nil {
					causes = append(causes, err)
					continue
				}
				h.Type = name
				return h, frames, nil
			}
			if r.runLazy(name) {
				return r.Serialize(v, chain...)
			}
		default:
			g, ok := genericCodecs[codec]
			if !ok {
				continue
			}
			b, err := g.encode(v)
			if err != nil {
				causes = append(causes, err)
				continue
			}
			return Header{Type: codec}, [][]byte{b}, nil
		}
	}
	return Header{}, nil, &SerializationError{TypeName: TypeName(v), Codecs: chain, Causes: causes}
}

// Deserialize dispatches on the header's type name: generic codec names
// decode the joined frames directly, registered type names go through
// the type's hook. Lazy registrations are given one chance to supply a
// missing type before UnknownTypeError is returned.
func (r *Registry) Deserialize(h Header, frames [][]byte) (any, error) {
	if g, ok := genericCodecs[h.Type]; ok {
		return g.decode(concatFrames(frames))
	}
	if pair, ok := r.codecs.Load(h.Type); ok {
		return pair.deserialize(h, frames)
	}
	if r.runLazy(h.Type) {
		return r.Deserialize(h, frames)
	}
	return nil, &UnknownTypeError{Name: h.Type}
}

// registerBuiltins installs the raw byte-buffer codec: identity in both
// directions, the buffer travels as its own single frame. Decode always
// yields []byte regardless of what buffer kind the sender held; this
// mirrors the substrate's documented behavior for raw buffers.
func (r *Registry) registerBuiltins() {
	r.Register(bytesTypeName,
		func(v any) (Header, [][]byte, error) {
			return Header{}, [][]byte{v.([]byte)}, nil
		},
		func(h Header, frames [][]byte) (any, error) {
			if len(frames) == 0 {
				return []byte{}, nil
			}
			// Large buffers arrive split into chunks.
			return concatFrames(frames), nil
		})
}
