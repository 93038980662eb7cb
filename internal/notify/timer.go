// Package notify manages the single transient error banner shown when a
// schema fetch fails.
package notify

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a banner stays up without manual dismissal.
	DefaultTTL = 5000 * time.Millisecond

	// IdleMessage is the message held while no banner is active.
	IdleMessage = "Unknown error"
)

// Notification is the banner state.
type Notification struct {
	Message string `json:"message"`
	Active  bool   `json:"active"`
}

// Handle is the cancellable part of *time.Timer the Timer needs.
type Handle interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests swap it for a manual clock.
type AfterFunc func(d time.Duration, f func()) Handle

func realAfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}

// Timer holds at most one active notification and one pending expiry.
// It is safe for concurrent use.
type Timer struct {
	mu         sync.Mutex
	ttl        time.Duration
	afterFunc  AfterFunc
	onChange   func(Notification)
	state      Notification
	pending    Handle
	generation uint64
}

// Option configures a Timer.
type Option func(*Timer)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.ttl = d
		}
	}
}

// WithAfterFunc replaces the scheduler.
func WithAfterFunc(f AfterFunc) Option {
	return func(t *Timer) { t.afterFunc = f }
}

// OnChange registers fn, called after every transition outside the lock.
func OnChange(fn func(Notification)) Option {
	return func(t *Timer) { t.onChange = fn }
}

// New returns an idle Timer.
func New(opts ...Option) *Timer {
	t := &Timer{
		ttl:       DefaultTTL,
		afterFunc: realAfterFunc,
		state:     Notification{Message: IdleMessage},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Show activates the banner with msg and restarts the expiry. A pending
// expiry from an earlier Show is cancelled.
func (t *Timer) Show(msg string) {
	t.notify(t.Arm(msg))
}

// Arm is Show without the change hook: the caller publishes the returned
// state itself. It may be called while holding a lock the hook takes.
func (t *Timer) Arm(msg string) Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.generation++
	gen := t.generation
	t.state = Notification{Message: msg, Active: true}
	t.pending = t.afterFunc(t.ttl, func() { t.expire(gen) })
	return t.state
}

// Dismiss returns the banner to idle and cancels the pending expiry.
// Dismissing an idle Timer is a no-op.
func (t *Timer) Dismiss() {
	if n, ok := t.Clear(); ok {
		t.notify(n)
	}
}

// Clear is Dismiss without the change hook. It reports whether a banner
// was active.
func (t *Timer) Clear() (Notification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Active {
		return t.state, false
	}
	t.cancelLocked()
	t.generation++
	t.state = Notification{Message: IdleMessage}
	return t.state, true
}

// State returns the current banner.
func (t *Timer) State() Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Stop cancels any pending expiry without changing state.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.cancelLocked()
	t.generation++
	t.mu.Unlock()
}

// expire clears the banner only if no Show or Dismiss happened since gen
// was armed; Stop can lose the race against an already firing timer.
func (t *Timer) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.state.Active {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.state = Notification{Message: IdleMessage}
	state := t.state
	t.mu.Unlock()

	t.notify(state)
}

func (t *Timer) cancelLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) notify(n Notification) {
	if t.onChange != nil {
		t.onChange(n)
	}
}
