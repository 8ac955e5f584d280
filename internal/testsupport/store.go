package testsupport

import (
	"testing"
	"time"

	"vidconv/internal/config"
	"vidconv/internal/logging"
	"vidconv/internal/queue"
)

// NewStore creates a queue.Store sized from cfg and closes it on cleanup.
func NewStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()
	store := queue.NewStore(cfg.CapacityBytes(), logging.NewNop())
	t.Cleanup(store.Close)
	return store
}

// WaitFor polls cond until it returns true or the timeout elapses.
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

// WaitForStatus waits until job id reaches status and returns the snapshot.
func WaitForStatus(t testing.TB, store *queue.Store, id string, status queue.Status) queue.Job {
	t.Helper()
	var job queue.Job
	WaitFor(t, 5*time.Second, func() bool {
		var ok bool
		job, ok = store.Get(id)
		return ok && job.Status == status
	})
	return job
}
