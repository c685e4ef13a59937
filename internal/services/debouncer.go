package services

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of ledger mutations into a single sync
// notification. Each Trigger resets the timer; the callback fires with the
// latest revision once the ledger has been quiet for the full delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(revision uint64)
	timer   *time.Timer
	gen     uint64
	pending uint64
	stopped bool
}

func NewDebouncer(delay time.Duration, fn func(revision uint64)) *Debouncer {
	return &Debouncer{
		delay: delay,
		fn:    fn,
	}
}

// Trigger schedules the callback, replacing any previously scheduled run.
func (d *Debouncer) Trigger(revision uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending = revision
	if d.timer != nil {
		d.timer.Stop()
	}
	// The generation ties each scheduled run to the Trigger that armed
	// it. An expired timer whose callback lost the race to a newer
	// Trigger sees a stale generation and yields, so the full delay
	// always elapses after the latest mutation.
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	revision := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.fn(revision)
}

// Flush runs any pending callback immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.stopped || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.gen++
	revision := d.pending
	d.timer = nil
	d.mu.Unlock()

	d.fn(revision)
}

// Stop cancels any pending callback. The debouncer cannot be reused.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
