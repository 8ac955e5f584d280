// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and request/response DTOs. Responses
// reuse the api package types so CLI and HTTP clients render the same data.
// Submit takes file paths on the daemon host; files are copied into the
// staging directory rather than moved.
package ipc
