// Package debounce coalesces bursts of calls into one delayed invocation.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays action until Trigger has not been called for wait.
// Only the argument of the most recent Trigger is delivered.
//
// A Debouncer does not guard against overlapping runs of action: if the
// previous invocation is still running when the next one fires, both run.
type Debouncer[T any] struct {
	action func(T)
	wait   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New returns a Debouncer for action with the given quiet period.
func New[T any](action func(T), wait time.Duration) *Debouncer[T] {
	return &Debouncer[T]{action: action, wait: wait}
}

// Trigger cancels any pending invocation and schedules a new one with arg.
func (d *Debouncer[T]) Trigger(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() {
		d.fire(gen, arg)
	})
}

// fire runs action unless a newer Trigger or a Cancel superseded gen.
// time.Timer.Stop cannot recall a callback that already started, so the
// generation check is what guarantees one call per quiet period.
func (d *Debouncer[T]) fire(gen uint64, arg T) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.action(arg)
}

// Cancel drops the pending invocation, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an invocation is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending invocation and turns later Triggers into no-ops.
func (d *Debouncer[T]) Stop() {
	d.Cancel()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
