// Package debounce provides the cancellable quiet-period task shared by
// every coalescing concern (history commit, autosave, search, tag
// reload). Each concern owns an independent Task instance.
package debounce

import (
	"sync"
	"time"
)

// Task coalesces a burst of Schedule calls into a single deferred fire.
// Scheduling while a fire is pending resets the quiet period and
// replaces the pending function.
type Task struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
}

// NewTask creates a task with the given quiet period.
func NewTask(delay time.Duration) *Task {
	return &Task{delay: delay}
}

// Schedule arms the task to run fn after the quiet period, cancelling
// any previously pending fire of this task.
func (t *Task) Schedule(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	gen := t.gen
	t.pending = fn

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, func() {
		t.fire(gen)
	})
}

func (t *Task) fire(gen uint64) {
	t.mu.Lock()
	// A newer Schedule or a Cancel supersedes this fire.
	if gen != t.gen || t.pending == nil {
		t.mu.Unlock()
		return
	}
	fn := t.pending
	t.pending = nil
	t.mu.Unlock()

	fn()
}

// Cancel drops any pending fire without running it.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Flush runs the pending function immediately, if any, instead of
// waiting out the quiet period.
func (t *Task) Flush() {
	t.mu.Lock()
	t.gen++
	fn := t.pending
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pending reports whether a fire is currently scheduled.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}
