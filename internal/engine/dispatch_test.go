package engine

import (
	"errors"
	"testing"

	"vidconv/internal/queue"
	"vidconv/internal/testsupport"
)

func TestUndispatchedJobIsMarkedFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Stop)

	job := queue.Job{ID: "a", InputName: "a_1234.mkv", Status: queue.StatusQueued, Attempt: 1}
	if err := eng.store.Insert(job); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	eng.mu.Lock()
	eng.stopped = true
	eng.mu.Unlock()

	if eng.dispatch(job.ID, job.Attempt) {
		t.Fatal("expected no worker scheduled after stop")
	}
	if eng.RunningCount() != 0 {
		t.Fatalf("expected nothing running, got %d", eng.RunningCount())
	}
	failed, err := eng.failUndispatched(job.ID, "engine stopped before the conversion started")
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if failed.ID != job.ID || failed.Status != queue.StatusError || failed.ErrorMessage == "" {
		t.Fatalf("unexpected job %+v", failed)
	}
	if stored, _ := eng.store.Get(job.ID); stored.Status != queue.StatusError {
		t.Fatalf("expected stored job in error, got %s", stored.Status)
	}

	// A job removed before the stop is noticed still reports its ID.
	gone, err := eng.failUndispatched("missing", "stopped")
	if !errors.Is(err, ErrStopped) || gone.ID != "missing" {
		t.Fatalf("unexpected result %+v err=%v", gone, err)
	}
}

func TestLeftoverOutput(t *testing.T) {
	cases := []struct {
		name string
		job  queue.Job
		want string
	}{
		{"first attempt queued", queue.Job{InputName: "a_1234.mkv", Status: queue.StatusQueued, Attempt: 1}, ""},
		{"retried and queued", queue.Job{InputName: "a_1234.mkv", Status: queue.StatusQueued, Attempt: 2}, "converted_a_1234.mp4"},
		{"processing", queue.Job{InputName: "a_1234.mkv", Status: queue.StatusProcessing, Attempt: 1}, "converted_a_1234.mp4"},
		{"failed", queue.Job{InputName: "a_1234.mkv", Status: queue.StatusError, Attempt: 1}, "converted_a_1234.mp4"},
		{"complete", queue.Job{InputName: "a_1234.mkv", OutputName: "converted_a_1234.mp4", Status: queue.StatusComplete, Attempt: 1}, "converted_a_1234.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := leftoverOutput(tc.job); got != tc.want {
				t.Fatalf("leftoverOutput = %q, want %q", got, tc.want)
			}
		})
	}
}
