// Package debounce coalesces bursts of signals into a single delayed run.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Task runs fn once delay has elapsed since the last Schedule call.
// At most one run is pending at any time: each Schedule cancels the
// previous one. A run that already started receives a cancelled context when
// it is superseded or explicitly cancelled.
type Task struct {
	delay time.Duration
	fn    func(ctx context.Context)

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	pending bool
	closed  bool
}

// New creates a Task. fn must not call back into the Task synchronously.
func New(delay time.Duration, fn func(ctx context.Context)) *Task {
	return &Task{delay: delay, fn: fn}
}

// Schedule (re)starts the countdown.
func (t *Task) Schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.pending = true
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		if ctx.Err() != nil {
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.mu.Unlock()
		t.fn(ctx)
	})
}

// Cancel drops the pending run, if any, and reports whether one was pending.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := t.pending
	t.stopLocked()
	return wasPending
}

// Pending reports whether a run is scheduled and has not started yet.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Close cancels any pending run; later Schedule calls are ignored.
func (t *Task) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.closed = true
}

func (t *Task) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.pending = false
}
