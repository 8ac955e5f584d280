package api

import (
	"context"
	"errors"
	"testing"

	"vidconv/internal/queue"
)

type actionStub struct {
	retry  map[string]error
	remove map[string]bool
}

func (s actionStub) Retry(_ context.Context, id string) (queue.Job, error) {
	if err, ok := s.retry[id]; ok && err != nil {
		return queue.Job{}, err
	}
	return queue.Job{ID: id, Attempt: 2}, nil
}

func (s actionStub) Remove(_ context.Context, id string) (bool, error) {
	return s.remove[id], nil
}

func TestRetryJobsByIDClassifiesOutcomes(t *testing.T) {
	stub := actionStub{retry: map[string]error{
		"missing": queue.ErrJobNotFound,
		"busy":    queue.ErrJobProcessing,
		"done":    queue.ErrNotRetryable,
	}}
	res, err := RetryJobsByID(context.Background(), stub, []string{"ok", "missing", "busy", "done"})
	if err != nil {
		t.Fatalf("RetryJobsByID: %v", err)
	}
	if res.RetriedCount != 1 {
		t.Fatalf("expected 1 retried, got %d", res.RetriedCount)
	}
	want := []RetryOutcome{RetryOutcomeRetried, RetryOutcomeNotFound, RetryOutcomeProcessing, RetryOutcomeNotRetryable}
	for i, outcome := range want {
		if res.Items[i].Outcome != outcome {
			t.Fatalf("item %d: expected %s, got %s", i, outcome, res.Items[i].Outcome)
		}
	}
	if res.Items[0].Attempt != 2 {
		t.Fatalf("expected attempt 2, got %d", res.Items[0].Attempt)
	}
}

func TestRetryJobsByIDStopsOnUnexpectedError(t *testing.T) {
	boom := errors.New("boom")
	_, err := RetryJobsByID(context.Background(), actionStub{retry: map[string]error{"x": boom}}, []string{"x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRemoveJobsByID(t *testing.T) {
	res, err := RemoveJobsByID(context.Background(), actionStub{remove: map[string]bool{"a": true}}, []string{"a", "b"})
	if err != nil {
		t.Fatalf("RemoveJobsByID: %v", err)
	}
	if res.RemovedCount != 1 {
		t.Fatalf("expected 1 removed, got %d", res.RemovedCount)
	}
	if res.Items[1].Outcome != RemoveOutcomeNotFound {
		t.Fatalf("expected not_found, got %s", res.Items[1].Outcome)
	}
}
