package api

import (
	"context"
	"errors"

	"vidconv/internal/queue"
)

// JobActionService captures the per-job operations exposed by every surface.
type JobActionService interface {
	Retry(ctx context.Context, id string) (queue.Job, error)
	Remove(ctx context.Context, id string) (bool, error)
}

type RetryOutcome string

const (
	RetryOutcomeRetried      RetryOutcome = "retried"
	RetryOutcomeNotFound     RetryOutcome = "not_found"
	RetryOutcomeProcessing   RetryOutcome = "processing"
	RetryOutcomeNotRetryable RetryOutcome = "not_failed"
)

type RetryResult struct {
	ID      string       `json:"id"`
	Outcome RetryOutcome `json:"outcome"`
	Attempt int          `json:"attempt,omitempty"`
}

type RetryResults struct {
	RetriedCount int           `json:"retriedCount"`
	Items        []RetryResult `json:"items"`
}

type RemoveOutcome string

const (
	RemoveOutcomeRemoved  RemoveOutcome = "removed"
	RemoveOutcomeNotFound RemoveOutcome = "not_found"
)

type RemoveResult struct {
	ID      string        `json:"id"`
	Outcome RemoveOutcome `json:"outcome"`
}

type RemoveResults struct {
	RemovedCount int            `json:"removedCount"`
	Items        []RemoveResult `json:"items"`
}

// RetryJobsByID retries each job and classifies precondition failures
// instead of aborting the batch.
func RetryJobsByID(ctx context.Context, service JobActionService, ids []string) (RetryResults, error) {
	result := RetryResults{Items: make([]RetryResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Retry(ctx, id)
		switch {
		case err == nil:
			result.RetriedCount++
			result.Items = append(result.Items, RetryResult{ID: id, Outcome: RetryOutcomeRetried, Attempt: job.Attempt})
		case errors.Is(err, queue.ErrJobNotFound):
			result.Items = append(result.Items, RetryResult{ID: id, Outcome: RetryOutcomeNotFound})
		case errors.Is(err, queue.ErrJobProcessing):
			result.Items = append(result.Items, RetryResult{ID: id, Outcome: RetryOutcomeProcessing})
		case errors.Is(err, queue.ErrNotRetryable):
			result.Items = append(result.Items, RetryResult{ID: id, Outcome: RetryOutcomeNotRetryable})
		default:
			return RetryResults{}, err
		}
	}
	return result, nil
}

// RemoveJobsByID removes jobs one-by-one so each ID can report removed/not_found.
func RemoveJobsByID(ctx context.Context, service JobActionService, ids []string) (RemoveResults, error) {
	result := RemoveResults{Items: make([]RemoveResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := service.Remove(ctx, id)
		if err != nil {
			return RemoveResults{}, err
		}
		if removed {
			result.RemovedCount++
			result.Items = append(result.Items, RemoveResult{ID: id, Outcome: RemoveOutcomeRemoved})
			continue
		}
		result.Items = append(result.Items, RemoveResult{ID: id, Outcome: RemoveOutcomeNotFound})
	}
	return result, nil
}
