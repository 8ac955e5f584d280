// Package engine is the job facade used by every presentation surface.
//
// Engine owns the job store, the staging area, and one goroutine per running
// conversion. Callers enqueue, retry, and remove jobs and read snapshots; all
// long-running work happens on worker goroutines so these calls return at
// once. The engine also holds the global resolution and quality selection
// applied to new uploads, and optionally publishes finished files.
package engine
