// Package daemon coordinates the long-running vidconv process.
//
// It wires configuration, the conversion engine, and the HTTP API into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon reports dependency and directory health and serves the
// browser/CLI-facing JSON API.
//
// Keep orchestration logic here: job semantics live in the engine and queue
// packages while the daemon focuses on startup, shutdown, and transport.
package daemon
