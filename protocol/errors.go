package protocol

import (
	"fmt"
	"strings"
)

// FramingError indicates that a wire buffer is inconsistent with its
// declared frame lengths. The stream that produced it can no longer be
// trusted; transports escalate it by aborting the connection.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error: %s", e.Reason)
}

// SerializationError is returned when a value was rejected by every
// codec in the chain.
type SerializationError struct {
	TypeName string
	Codecs   []string
	Causes   []error
}

func (e *SerializationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "failed to serialize %s with codecs %v", e.TypeName, e.Codecs)
	for _, cause := range e.Causes {
		fmt.Fprintf(&sb, "; %v", cause)
	}
	return sb.String()
}

// UnknownTypeError is returned by Deserialize when the header names a
// type that is not registered, even after lazy registration was given a
// chance to run.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no deserializer registered for type %q", e.Name)
}

// UnknownCompressorError is returned when a header's compression table
// names a compressor this process does not have.
type UnknownCompressorError struct {
	Name string
}

func (e *UnknownCompressorError) Error() string {
	return fmt.Sprintf("unknown compressor %q", e.Name)
}
