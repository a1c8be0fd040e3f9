// Package tcp implements the stream-socket transport of the comm
// abstraction. Messages travel as a length-prefixed frame sequence: an
// 8-byte frame count, one 8-byte length per frame, then the raw frame
// bytes. Frame 0 is always the encoded message header.
//
// Importing the package registers the "tcp" scheme against the default
// comm registry.
package tcp
