// Package notifications tells an ntfy topic when conversions finish.
//
// NewService returns a no-op implementation when no topic is configured, so
// the engine can notify unconditionally.
package notifications
