package encoding

import (
	"math"
	"time"
)

const maxRunningPercent = 99.99

// ProgressTracker turns elapsed encoder time into job percentages and
// suppresses reports that do not move the needle.
type ProgressTracker struct {
	duration float64
	epsilon  float64
	last     float64
}

// NewProgressTracker creates a tracker for a media duration in seconds.
// floor is the percentage already reported before encoding started.
func NewProgressTracker(durationSeconds, epsilon, floor float64) *ProgressTracker {
	if epsilon <= 0 {
		epsilon = 0.01
	}
	return &ProgressTracker{duration: durationSeconds, epsilon: epsilon, last: floor}
}

// Observe returns the percentage to report for elapsed, and false when the
// value should not be forwarded.
func (t *ProgressTracker) Observe(elapsed time.Duration) (float64, bool) {
	if t == nil || t.duration <= 0 {
		return 0, false
	}
	pct := elapsed.Seconds() / t.duration * 100
	if math.IsNaN(pct) || pct < 0 {
		pct = 0
	}
	if pct > maxRunningPercent {
		pct = maxRunningPercent
	}
	if pct-t.last < t.epsilon-1e-9 {
		return 0, false
	}
	t.last = pct
	return pct, true
}

// Last returns the most recently forwarded percentage.
func (t *ProgressTracker) Last() float64 {
	if t == nil {
		return 0
	}
	return t.last
}
