package encoding

import (
	"testing"
	"time"
)

func TestProgressTrackerForwardsRises(t *testing.T) {
	tracker := NewProgressTracker(100, 0.01, 10)
	if _, ok := tracker.Observe(5 * time.Second); ok {
		t.Fatal("expected value below floor to be suppressed")
	}
	pct, ok := tracker.Observe(25 * time.Second)
	if !ok || pct != 25 {
		t.Fatalf("expected 25, got %v ok=%v", pct, ok)
	}
	if _, ok := tracker.Observe(25*time.Second + 5*time.Millisecond); ok {
		t.Fatal("expected sub-epsilon rise to be suppressed")
	}
	if _, ok := tracker.Observe(20 * time.Second); ok {
		t.Fatal("expected decrease to be suppressed")
	}
	if tracker.Last() != 25 {
		t.Fatalf("expected last 25, got %v", tracker.Last())
	}
}

func TestProgressTrackerClampsBelowComplete(t *testing.T) {
	tracker := NewProgressTracker(10, 0.01, 0)
	pct, ok := tracker.Observe(30 * time.Second)
	if !ok || pct != 99.99 {
		t.Fatalf("expected clamp to 99.99, got %v ok=%v", pct, ok)
	}
	if _, ok := tracker.Observe(40 * time.Second); ok {
		t.Fatal("expected no further reports at the ceiling")
	}
}

func TestProgressTrackerUnknownDuration(t *testing.T) {
	tracker := NewProgressTracker(0, 0.01, 0)
	if _, ok := tracker.Observe(time.Second); ok {
		t.Fatal("expected unknown duration to suppress progress")
	}
}
