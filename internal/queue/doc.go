// Package queue holds conversion jobs in memory and exposes helpers for
// driving their lifecycle.
//
// The Store owns the job map, creation order, and storage accountant behind a
// single mutex. Engine code mutates it directly (insert, claim, retry, delete);
// workers never do. Workers send Updates over a channel that one applier
// goroutine drains, so every change for one job lands in issue order and a
// stale or removed worker can never resurrect a record.
//
// Readers always receive Job values, never pointers into the store.
package queue
