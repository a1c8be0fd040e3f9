// Package rpc implements a small request/response layer on top of the
// comm abstraction. Messages are string-keyed maps carrying an "op"
// field; servers register one handler per op and dispatch incoming
// requests through a bounded per-connection worker pool, clients send a
// request and wait for the matching reply with retry on transient
// transport failures.
//
// The package is transport-agnostic: any scheme registered with the
// comm package (tcp, inproc) works unchanged.
package rpc
