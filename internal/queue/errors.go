package queue

import "errors"

var (
	// ErrJobNotFound reports an unknown or already removed job ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobProcessing rejects retrying a job whose worker is still running.
	ErrJobProcessing = errors.New("job is still processing")
	// ErrNotRetryable rejects retrying a job that did not fail.
	ErrNotRetryable = errors.New("only failed jobs can be retried")
	// ErrStaleAttempt reports a claim by a worker whose dispatch was superseded.
	ErrStaleAttempt = errors.New("job attempt superseded")
	// ErrInvalidTransition reports a status change outside the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStoreClosed reports use of a store after Close.
	ErrStoreClosed = errors.New("job store closed")
)
