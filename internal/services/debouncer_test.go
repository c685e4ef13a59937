package services

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	var calls atomic.Int64
	var lastRevision atomic.Uint64

	d := NewDebouncer(20*time.Millisecond, func(revision uint64) {
		calls.Add(1)
		lastRevision.Store(revision)
	})
	defer d.Stop()

	for rev := uint64(1); rev <= 5; rev++ {
		d.Trigger(rev)
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
	if got := lastRevision.Load(); got != 5 {
		t.Errorf("callback revision = %d, want 5 (latest)", got)
	}
}

func TestDebouncerFiresAgainAfterQuiet(t *testing.T) {
	var calls atomic.Int64
	d := NewDebouncer(10*time.Millisecond, func(uint64) { calls.Add(1) })
	defer d.Stop()

	d.Trigger(1)
	time.Sleep(50 * time.Millisecond)
	d.Trigger(2)
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Errorf("callback fired %d times, want 2", got)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var calls atomic.Int64
	var lastRevision atomic.Uint64

	d := NewDebouncer(time.Hour, func(revision uint64) {
		calls.Add(1)
		lastRevision.Store(revision)
	})
	defer d.Stop()

	d.Trigger(7)
	d.Flush()

	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times after Flush, want 1", got)
	}
	if got := lastRevision.Load(); got != 7 {
		t.Errorf("callback revision = %d, want 7", got)
	}

	// Nothing pending: a second flush is a no-op.
	d.Flush()
	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times after second Flush, want 1", got)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var calls atomic.Int64
	d := NewDebouncer(10*time.Millisecond, func(uint64) { calls.Add(1) })

	d.Trigger(1)
	d.Stop()
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times after Stop, want 0", got)
	}

	d.Trigger(2)
	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback fired %d times after Trigger on stopped debouncer, want 0", got)
	}
}

func TestDebouncerStaleTimerYieldsToNewerTrigger(t *testing.T) {
	var calls atomic.Int64
	var lastRevision atomic.Uint64

	d := NewDebouncer(time.Hour, func(revision uint64) {
		calls.Add(1)
		lastRevision.Store(revision)
	})
	defer d.Stop()

	// Simulate an expired timer whose callback lost the race to a newer
	// Trigger: its generation is stale by the time it runs, so it must
	// not consume the rescheduled revision early.
	d.Trigger(1)
	d.Trigger(2)
	d.fire(1)

	if got := calls.Load(); got != 0 {
		t.Fatalf("stale timer callback fired %d times, want 0", got)
	}

	// The rescheduled run still delivers the latest revision.
	d.Flush()
	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
	if got := lastRevision.Load(); got != 2 {
		t.Errorf("callback revision = %d, want 2 (latest)", got)
	}
}
