// Package cmd implements the command-line interface for taskwire. It
// provides a hierarchical command structure for running a message
// server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a taskwire server
//   - msg: Commands for sending messages to a server (send, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See taskwire -help for a list of all commands.
package cmd
