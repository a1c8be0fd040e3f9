// Package inproc implements the in-process transport of the comm
// abstraction: a pair of single-reader, single-writer queues connects
// two comms in the same process, bypassing the network entirely.
//
// Messages are not framed or serialized; they travel by reference. Read
// still replays the extraction semantics of a real wire transfer
// (markers unwrapped, placeholders decoded) so that code exercised over
// inproc behaves exactly as it would over a socket.
//
// Addresses have the form "inproc://ip/pid/n" where n is a process-wide
// counter; a registry of live listeners pairs connectors with their
// target. Importing the package registers the "inproc" scheme.
package inproc
