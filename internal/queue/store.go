package queue

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"vidconv/internal/capacity"
	"vidconv/internal/logging"
	"vidconv/internal/services"
)

const updateBuffer = 256

// Store is the in-memory job collection plus its storage accountant.
type Store struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
	acct  capacity.Accountant

	updates   chan envelope
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates an empty store with the given quota in bytes and starts
// its update applier.
func NewStore(limitBytes int64, logger *slog.Logger) *Store {
	s := &Store{
		jobs:    make(map[string]*Job),
		acct:    capacity.New(limitBytes),
		updates: make(chan envelope, updateBuffer),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logging.NewComponentLogger(logger, "job-store"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	go s.run()
	return s
}

// Close stops the applier after draining queued updates. Updates sent after
// Close are rejected with ErrStoreClosed.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
	<-s.stopped
}

// Insert adds a new job. The ID must be unique.
func (s *Store) Insert(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("insert job %s: duplicate id", job.ID)
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusQueued
	}
	stored := job
	s.jobs[job.ID] = &stored
	s.order = append(s.order, job.ID)
	return nil
}

// Get returns a snapshot of one job.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of every job, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.jobs[s.order[i]])
	}
	return out
}

// Stats counts jobs per status.
func (s *Store) Stats() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make(map[Status]int, len(allStatuses))
	for _, job := range s.jobs {
		stats[job.Status]++
	}
	return stats
}

// Mutate applies fn to a job under the store lock. fn must not block.
func (s *Store) Mutate(id string, fn func(*Job) error) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	working := *job
	if err := fn(&working); err != nil {
		return *job, err
	}
	working.UpdatedAt = s.now()
	*job = working
	return working, nil
}

// Delete removes a job and credits whatever capacity it still holds, in the
// same critical section. It returns the removed snapshot and credited bytes.
func (s *Store) Delete(id string) (Job, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, 0, false
	}
	var credited int64
	if job.InputReserved {
		credited += job.InputSizeBytes
	}
	if job.OutputDebited {
		credited += job.OutputSizeBytes
	}
	s.acct.Credit(credited)
	delete(s.jobs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return *job, credited, true
}

// Claim moves a queued job into processing for the given dispatch attempt.
// preflight runs under the lock; when it fails the job goes straight to
// error and the preflight error is returned.
func (s *Store) Claim(id string, attempt int, startPercent float64, preflight func(Job) error) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	if job.Attempt != attempt {
		return *job, ErrStaleAttempt
	}
	if job.Status != StatusQueued {
		return *job, fmt.Errorf("%w: claim from %s", ErrInvalidTransition, job.Status)
	}
	now := s.now()
	if preflight != nil {
		if err := preflight(*job); err != nil {
			if markErr := job.MarkFailed(services.Describe(err), now); markErr != nil {
				return *job, markErr
			}
			return *job, err
		}
	}
	if err := job.MarkProcessing(startPercent, now); err != nil {
		return *job, err
	}
	return *job, nil
}

// PrepareRetry resets a failed job for a new dispatch and returns it.
func (s *Store) PrepareRetry(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	switch job.Status {
	case StatusProcessing:
		return *job, ErrJobProcessing
	case StatusError:
	default:
		return *job, ErrNotRetryable
	}
	if err := job.ResetForRetry(s.now()); err != nil {
		return *job, err
	}
	return *job, nil
}

// Capacity returns a snapshot of the storage accountant.
func (s *Store) Capacity() capacity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct.Snapshot()
}

// CanAdmit reports whether n more bytes fit under the quota.
func (s *Store) CanAdmit(n int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct.CanAdmit(n)
}

// Credit releases n bytes, never dropping usage below zero.
func (s *Store) Credit(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acct.Credit(n)
}

// Reserve atomically checks and charges n bytes. Concurrent admissions can
// never jointly exceed the quota.
func (s *Store) Reserve(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acct.CanAdmit(n) {
		return capacity.QuotaError(n, s.acct.Snapshot())
	}
	s.acct.Debit(n)
	return nil
}
