package protocol

import (
	"fmt"
	"reflect"
	"strings"
)

// ToSerialize marks one value inside a message as "serialize this
// independently of its container". The comm layer pulls marked values
// out before the generic codec sees the message, so large payloads do
// not pass through it.
type ToSerialize struct {
	Data any
}

func (s ToSerialize) String() string {
	return fmt.Sprintf("<ToSerialize: %v>", s.Data)
}

// Equal reports equality of the wrapped values.
func (s ToSerialize) Equal(other ToSerialize) bool {
	return reflect.DeepEqual(s.Data, other.Data)
}

// Serialized is a value that has already been converted to a header and
// frame sequence but not yet placed on the wire. Serialize passes it
// through untouched; the frames may still carry per-frame compression
// recorded in the header.
type Serialized struct {
	Header Header
	Frames [][]byte
}

// Deserialize decompresses the frames per the header's table and
// decodes them through the registry.
func (s Serialized) Deserialize(reg *Registry) (any, error) {
	frames, err := DecompressFrames(s.Header, s.Frames)
	if err != nil {
		return nil, err
	}
	return orDefault(reg).Deserialize(s.Header, frames)
}

// Equal reports equality of header and frames.
func (s Serialized) Equal(other Serialized) bool {
	return reflect.DeepEqual(s.Header, other.Header) &&
		reflect.DeepEqual(s.Frames, other.Frames)
}

// Path addresses one value inside a nested message: a sequence of map
// keys (string) and list indices (int) from the root.
type Path []any

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, "/")
}

// child extends a path by one element, always allocating so sibling
// paths never share backing arrays.
func (p Path) child(elem any) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, elem)
}

// PathValue is one extracted value together with its location in the
// original message.
type PathValue struct {
	Path  Path
	Value any
}

// ExtractOptions tunes Extract.
type ExtractOptions struct {
	// Threshold is the size above which a raw byte buffer is extracted
	// even without an explicit marker.
	Threshold int
}

// DefaultExtractThreshold is the opportunistic extraction cutoff for
// raw byte buffers.
const DefaultExtractThreshold = 64 << 10

// Extract walks a nested message (maps and lists only, other container
// kinds are treated as leaves) and pulls out every ToSerialize marker,
// Serialized placeholder, and raw byte buffer above the threshold.
//
// It returns a stripped copy of the message (the original is never
// mutated: extracted map keys are deleted, extracted list slots are
// nulled), the extracted values keyed by path in walk order, and the
// paths that held raw buffers. Raw buffers come back wrapped in
// ToSerialize so the caller can treat all extracted values uniformly.
func Extract(msg any, opts ...ExtractOptions) (any, []PathValue, []Path) {
	threshold := DefaultExtractThreshold
	if len(opts) > 0 && opts[0].Threshold > 0 {
		threshold = opts[0].Threshold
	}

	var found []PathValue
	walkExtract(msg, nil, threshold, &found)
	if len(found) == 0 {
		return msg, nil, nil
	}

	stripped := containerCopy(msg)
	for _, pv := range found {
		strip(stripped, pv.Path)
	}

	var rawPaths []Path
	for i, pv := range found {
		if b, ok := pv.Value.([]byte); ok {
			found[i].Value = ToSerialize{Data: b}
			rawPaths = append(rawPaths, pv.Path)
		}
	}
	return stripped, found, rawPaths
}

func walkExtract(x any, path Path, threshold int, found *[]PathValue) {
	switch c := x.(type) {
	case map[string]any:
		for k, v := range c {
			walkValue(v, path.child(k), threshold, found)
		}
	case []any:
		for i, v := range c {
			walkValue(v, path.child(i), threshold, found)
		}
	}
}

func walkValue(v any, path Path, threshold int, found *[]PathValue) {
	switch t := v.(type) {
	case map[string]any, []any:
		walkExtract(v, path, threshold, found)
	case ToSerialize, Serialized:
		*found = append(*found, PathValue{Path: path, Value: v})
	case []byte:
		if len(t) > threshold {
			*found = append(*found, PathValue{Path: path, Value: v})
		}
	}
}

// containerCopy clones the map/list spine of a message. Leaves are
// shared with the original.
func containerCopy(x any) any {
	switch c := x.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, v := range c {
			out[k] = containerCopy(v)
		}
		return out
	case []any:
		out := make([]any, len(c))
		for i, v := range c {
			out[i] = containerCopy(v)
		}
		return out
	default:
		return x
	}
}

// strip removes the value at path from a copied message: map entries are
// deleted, list slots are set to nil so indices stay stable.
func strip(x any, path Path) {
	parent := getIn(x, path[:len(path)-1])
	switch p := parent.(type) {
	case map[string]any:
		delete(p, path[len(path)-1].(string))
	case []any:
		p[path[len(path)-1].(int)] = nil
	}
}

// getIn resolves a path prefix to the container it addresses.
func getIn(x any, path Path) any {
	for _, elem := range path {
		switch c := x.(type) {
		case map[string]any:
			x = c[elem.(string)]
		case []any:
			x = c[elem.(int)]
		default:
			return nil
		}
	}
	return x
}

// Plant writes a value back at a path inside a stripped message. The
// inverse of strip, used when reassembling a decoded message.
func Plant(x any, path Path, value any) {
	parent := getIn(x, path[:len(path)-1])
	switch p := parent.(type) {
	case map[string]any:
		p[path[len(path)-1].(string)] = value
	case []any:
		p[path[len(path)-1].(int)] = value
	}
}

// NestedDeserialize returns a copy of a message in which every
// ToSerialize marker is replaced by its wrapped value and every
// Serialized placeholder by its fully decoded value (decompress, then
// decode). The input is not mutated.
func NestedDeserialize(reg *Registry, x any) (any, error) {
	switch c := x.(type) {
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, v := range c {
			r, err := NestedDeserialize(reg, v)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(c))
		for i, v := range c {
			r, err := NestedDeserialize(reg, v)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case ToSerialize:
		return c.Data, nil
	case Serialized:
		return c.Deserialize(reg)
	default:
		return x, nil
	}
}

func orDefault(reg *Registry) *Registry {
	if reg == nil {
		return DefaultRegistry
	}
	return reg
}
