// Package capacity tracks bytes charged against the storage quota.
//
// Accountant is a plain value with no locking; queue.Store owns the live
// instance and guards it with the same mutex as the job collection.
package capacity

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrQuotaExceeded reports an admission that would push usage past the limit.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Level buckets usage for display.
type Level string

const (
	LevelHealthy   Level = "healthy"
	LevelWarning   Level = "warning"
	LevelNearLimit Level = "near_limit"
)

const (
	warningPercent   = 75.0
	nearLimitPercent = 90.0
)

// Accountant tracks used bytes against a fixed limit. Used never drops below 0.
type Accountant struct {
	Limit int64
	Used  int64
}

// New returns an accountant with the given limit and nothing used.
func New(limit int64) Accountant {
	if limit < 0 {
		limit = 0
	}
	return Accountant{Limit: limit}
}

// Remaining returns the unused bytes, floored at 0.
func (a Accountant) Remaining() int64 {
	if a.Used >= a.Limit {
		return 0
	}
	return a.Limit - a.Used
}

// UsageFraction returns Used/Limit, or 0 when no limit is configured.
func (a Accountant) UsageFraction() float64 {
	if a.Limit <= 0 {
		return 0
	}
	return float64(a.Used) / float64(a.Limit)
}

// UsagePercent returns UsageFraction scaled to 0..100 (and beyond when over quota).
func (a Accountant) UsagePercent() float64 {
	return a.UsageFraction() * 100
}

// CanAdmit reports whether n more bytes fit under the limit.
func (a Accountant) CanAdmit(n int64) bool {
	if n < 0 || a.Used > a.Limit {
		return false
	}
	return n <= a.Limit-a.Used
}

// Debit charges n bytes. Negative values are ignored.
func (a *Accountant) Debit(n int64) {
	if n <= 0 {
		return
	}
	a.Used += n
}

// Credit releases n bytes, clamping Used at 0.
func (a *Accountant) Credit(n int64) {
	if n <= 0 {
		return
	}
	a.Used -= n
	if a.Used < 0 {
		a.Used = 0
	}
}

// Level classifies the current usage.
func (a Accountant) Level() Level {
	pct := a.UsagePercent()
	switch {
	case pct > nearLimitPercent:
		return LevelNearLimit
	case pct >= warningPercent:
		return LevelWarning
	default:
		return LevelHealthy
	}
}

// Snapshot is an immutable copy of accountant state for observers.
type Snapshot struct {
	Limit     int64
	Used      int64
	Remaining int64
	Percent   float64
	Level     Level
}

// Snapshot captures the accountant's current figures.
func (a Accountant) Snapshot() Snapshot {
	return Snapshot{
		Limit:     a.Limit,
		Used:      a.Used,
		Remaining: a.Remaining(),
		Percent:   a.UsagePercent(),
		Level:     a.Level(),
	}
}

// QuotaError builds an ErrQuotaExceeded with the figures a caller needs to act.
func QuotaError(requested int64, snap Snapshot) error {
	return fmt.Errorf("%w: need %s, %s of %s free",
		ErrQuotaExceeded,
		humanize.IBytes(uint64(max(requested, 0))),
		humanize.IBytes(uint64(snap.Remaining)),
		humanize.IBytes(uint64(snap.Limit)))
}
