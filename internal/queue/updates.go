package queue

import (
	"context"

	"vidconv/internal/logging"
)

// UpdateKind identifies what a worker is reporting.
type UpdateKind int

const (
	UpdateProgress UpdateKind = iota
	UpdateComplete
	UpdateFailed
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateProgress:
		return "progress"
	case UpdateComplete:
		return "complete"
	case UpdateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Update is a worker-originated change to one job. It applies only while the
// job exists, its Attempt matches, and it is still processing.
type Update struct {
	JobID   string
	Attempt int
	Kind    UpdateKind

	Progress   float64
	OutputName string
	OutputSize int64
	Message    string
}

// ProgressUpdate reports percent complete.
func ProgressUpdate(id string, attempt int, percent float64) Update {
	return Update{JobID: id, Attempt: attempt, Kind: UpdateProgress, Progress: percent}
}

// CompleteUpdate reports a finished output; the store debits its size.
func CompleteUpdate(id string, attempt int, outputName string, size int64) Update {
	return Update{JobID: id, Attempt: attempt, Kind: UpdateComplete, OutputName: outputName, OutputSize: size}
}

// FailedUpdate reports a failure with its diagnostic.
func FailedUpdate(id string, attempt int, message string) Update {
	return Update{JobID: id, Attempt: attempt, Kind: UpdateFailed, Message: message}
}

type envelope struct {
	update Update
	ack    chan bool
}

// Send queues an update without waiting for it to apply.
func (s *Store) Send(ctx context.Context, upd Update) error {
	return s.enqueue(ctx, envelope{update: upd})
}

// Apply queues an update and waits until the applier has processed it,
// reporting whether it changed the job. Updates sent earlier by the same
// caller are applied first.
func (s *Store) Apply(ctx context.Context, upd Update) (bool, error) {
	ack := make(chan bool, 1)
	if err := s.enqueue(ctx, envelope{update: upd, ack: ack}); err != nil {
		return false, err
	}
	select {
	case applied := <-ack:
		return applied, nil
	case <-s.stopped:
		select {
		case applied := <-ack:
			return applied, nil
		default:
			return false, ErrStoreClosed
		}
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *Store) enqueue(ctx context.Context, env envelope) error {
	select {
	case <-s.closing:
		return ErrStoreClosed
	default:
	}
	select {
	case s.updates <- env:
		return nil
	case <-s.closing:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) run() {
	defer close(s.stopped)
	for {
		select {
		case env := <-s.updates:
			s.handle(env)
		case <-s.closing:
			for {
				select {
				case env := <-s.updates:
					s.handle(env)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) handle(env envelope) {
	applied := s.applyUpdate(env.update)
	if env.ack != nil {
		env.ack <- applied
	}
}

func (s *Store) applyUpdate(upd Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[upd.JobID]
	if !ok || job.Attempt != upd.Attempt || job.Status != StatusProcessing {
		s.logger.Debug("dropping stale job update",
			logging.String(logging.FieldJobID, upd.JobID),
			logging.String("kind", upd.Kind.String()),
			logging.Int("attempt", upd.Attempt),
			logging.Bool("found", ok))
		return false
	}

	now := s.now()
	switch upd.Kind {
	case UpdateProgress:
		return job.raiseProgress(upd.Progress, now)
	case UpdateComplete:
		if err := job.MarkComplete(upd.OutputName, upd.OutputSize, now); err != nil {
			s.logger.Warn("job completion rejected",
				logging.String(logging.FieldJobID, upd.JobID),
				logging.Error(err))
			return false
		}
		s.acct.Debit(upd.OutputSize)
		job.OutputDebited = true
		return true
	case UpdateFailed:
		return job.MarkFailed(upd.Message, now) == nil
	default:
		return false
	}
}
