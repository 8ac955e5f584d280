package queue

import (
	"fmt"
	"strings"
	"time"

	"vidconv/internal/preset"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

var allStatuses = []Status{StatusQueued, StatusProcessing, StatusComplete, StatusError}

// Statuses lists every job status in lifecycle order.
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status if recognized.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// IsTerminal reports whether no worker will touch a job in this status again
// until it is retried.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// queued -> error covers preflight failures before any encoding work starts.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusError},
	StatusProcessing: {StatusComplete, StatusError},
	StatusError:      {StatusQueued},
	StatusComplete:   {},
}

// CanTransition reports whether from -> to follows the job lifecycle.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is one conversion request and its observable state.
type Job struct {
	ID           string
	InputName    string
	OriginalName string
	OutputName   string
	Status       Status
	Progress     float64
	Resolution   preset.Resolution
	Quality      preset.Quality
	ErrorMessage string

	InputSizeBytes  int64
	OutputSizeBytes int64

	// Attempt is the dispatch generation. Worker updates carrying an older
	// attempt are dropped.
	Attempt int

	// Capacity bookkeeping so removal credits exactly what was charged.
	InputReserved bool
	OutputDebited bool

	PublishedKey string
	PublishError string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

func (j *Job) transition(to Status, now time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	return nil
}

// MarkProcessing moves a queued job into processing at the given progress.
func (j *Job) MarkProcessing(progress float64, now time.Time) error {
	if err := j.transition(StatusProcessing, now); err != nil {
		return err
	}
	j.Progress = clampProgress(progress)
	j.StartedAt = now
	j.FinishedAt = time.Time{}
	return nil
}

// MarkComplete records a successful conversion.
func (j *Job) MarkComplete(outputName string, size int64, now time.Time) error {
	if strings.TrimSpace(outputName) == "" {
		return fmt.Errorf("%w: complete requires an output name", ErrInvalidTransition)
	}
	if err := j.transition(StatusComplete, now); err != nil {
		return err
	}
	j.OutputName = outputName
	j.OutputSizeBytes = size
	j.Progress = 100
	j.ErrorMessage = ""
	j.FinishedAt = now
	return nil
}

// MarkFailed records a failure with a non-empty diagnostic.
func (j *Job) MarkFailed(message string, now time.Time) error {
	if err := j.transition(StatusError, now); err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	j.ErrorMessage = message
	j.FinishedAt = now
	return nil
}

// ResetForRetry returns a failed job to the queue as a new dispatch generation.
func (j *Job) ResetForRetry(now time.Time) error {
	if err := j.transition(StatusQueued, now); err != nil {
		return err
	}
	j.Progress = 0
	j.ErrorMessage = ""
	j.OutputName = ""
	j.OutputSizeBytes = 0
	j.PublishedKey = ""
	j.PublishError = ""
	j.StartedAt = time.Time{}
	j.FinishedAt = time.Time{}
	j.Attempt++
	return nil
}

// raiseProgress applies a worker progress report. Progress never decreases
// and only reaches 100 through MarkComplete.
func (j *Job) raiseProgress(value float64, now time.Time) bool {
	value = clampProgress(value)
	if value >= 100 {
		value = maxRunningProgress
	}
	if value <= j.Progress {
		return false
	}
	j.Progress = value
	j.UpdatedAt = now
	return true
}

// maxRunningProgress is the ceiling while the encoder is still running.
const maxRunningProgress = 99.99

func clampProgress(value float64) float64 {
	switch {
	case value != value, value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
