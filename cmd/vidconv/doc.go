// Package main hosts the vidconv CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon: submitting files, inspecting and managing jobs, and
// changing the global resolution/quality selection. `vidconv serve` runs the
// daemon itself; start, stop and restart manage it in the background. Configuration resolution and socket discovery live here so
// subcommands can focus on presentation.
//
// Keep this package lean: job semantics belong in internal/engine; surface
// them through commands or flags here.
package main
