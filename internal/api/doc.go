// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates engine and queue models into transport-friendly
// DTOs that the CLI and browser clients render without coupling to internal
// types.
//
// # Key Types
//
// Job: transport representation of a conversion job with progress, sizes,
// display labels, and publish outcome.
//
// CapacityCard: storage usage with human-readable sizes and a level label.
//
// Settings: the global resolution/quality selection with its option lists
// and help text.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums are exposed as lowercase
// strings with a separate display label. Timestamps use RFC3339 with
// milliseconds; sizes carry both raw bytes and a binary-unit string.
package api
