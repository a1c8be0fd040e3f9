// Package protocol implements the serialization layer of the taskwire
// communication substrate. It converts arbitrary nested messages into
// ordered sequences of length-prefixed, optionally compressed binary
// frames, and back.
//
// The package is organized around four pieces:
//
//   - Frame codec: PackFrames/UnpackFrames convert a frame sequence to a
//     single contiguous wire buffer (uint64 count, uint64 length table,
//     concatenated frame bytes) and back. SplitFrame bounds individual
//     frame sizes without copying.
//
//   - Compression: a registry of per-frame compressors (lz4 by default,
//     zstd and snappy built in). MaybeCompress stores a frame raw when it
//     is small or does not shrink, recording the decision in the header's
//     per-frame compression table.
//
//   - Codec registry: Registry maps fully-qualified type names to
//     serialize/deserialize function pairs, supports lazy registration
//     keyed by package path, and falls back to a chain of generic codecs
//     (gob, msgpack) when no per-type hook matches.
//
//   - Message transform: Extract pulls ToSerialize markers, Serialized
//     placeholders and large byte buffers out of a nested message into a
//     path-keyed side table; NestedDeserialize is the inverse applied
//     after decoding. EncodeMessage/DecodeMessage combine everything into
//     the whole-message wire pipeline used by the stream transports.
//
// Thread safety: Registry is safe for concurrent lookups; registration
// is expected to happen during startup. All codec implementations are
// stateless.
package protocol
