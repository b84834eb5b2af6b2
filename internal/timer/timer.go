// Package timer provides a cancellable countdown that reports every elapsed
// interval on a channel instead of calling back into the caller.
package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the length of one countdown step.
const DefaultInterval = time.Second

var (
	// ErrInvalidState is returned by Start while a countdown is active.
	ErrInvalidState = errors.New("timer: countdown already running")

	// ErrOutOfRange is returned by Start for a non-positive duration.
	ErrOutOfRange = errors.New("timer: duration must be positive")
)

// Kind distinguishes tick notifications from the terminal expiry.
type Kind int

const (
	Tick Kind = iota + 1
	Expired
)

func (k Kind) String() string {
	switch k {
	case Tick:
		return "TICK"
	case Expired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Notification is delivered once per elapsed step, followed by one Expired.
type Notification struct {
	Kind      Kind
	Elapsed   int // steps elapsed since Start
	Remaining int // steps left until expiry
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval sets the step length. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// Timer runs at most one countdown at a time. Notifications are sent on an
// unbuffered channel from a timer-owned goroutine.
type Timer struct {
	interval time.Duration
	c        chan Notification

	mu       sync.Mutex
	active   *run // counting down
	expiring *run // delivering its Expired notification
}

type run struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newRun() *run {
	return &run{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// cancel signals the run goroutine and waits for it to exit.
func (r *run) cancel() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}

// New creates an idle Timer.
func New(opts ...Option) *Timer {
	t := &Timer{
		interval: DefaultInterval,
		c:        make(chan Notification),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Interval returns the configured step length.
func (t *Timer) Interval() time.Duration {
	return t.interval
}

// C returns the channel notifications are delivered on. The channel is the
// same for the lifetime of the Timer.
func (t *Timer) C() <-chan Notification {
	return t.c
}

// Running reports whether a countdown is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}

// Start begins a countdown of the given number of steps. The first Tick is
// delivered one interval later, never from within Start.
func (t *Timer) Start(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("start %d steps: %w", steps, ErrOutOfRange)
	}

	t.mu.Lock()
	if t.active != nil {
		t.mu.Unlock()
		return ErrInvalidState
	}
	prev := t.expiring
	t.expiring = nil
	r := newRun()
	t.active = r
	t.mu.Unlock()

	// An undelivered Expired from the previous countdown is superseded.
	if prev != nil {
		prev.cancel()
	}

	go t.countdown(r, steps)
	return nil
}

// Stop cancels the countdown. It is a no-op when idle. Once Stop returns no
// further notification from the cancelled countdown is delivered.
func (t *Timer) Stop() {
	t.mu.Lock()
	active, expiring := t.active, t.expiring
	t.active, t.expiring = nil, nil
	t.mu.Unlock()

	if active != nil {
		active.cancel()
	}
	if expiring != nil {
		expiring.cancel()
	}
}

func (t *Timer) countdown(r *run, steps int) {
	defer close(r.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for elapsed := 1; elapsed <= steps; elapsed++ {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}
		if !t.deliver(r, Notification{Kind: Tick, Elapsed: elapsed, Remaining: steps - elapsed}) {
			return
		}
	}

	// Go idle before the expiry goes out so the receiver may Start again
	// as soon as it has seen it.
	t.mu.Lock()
	if t.active != r {
		t.mu.Unlock()
		return
	}
	t.active = nil
	t.expiring = r
	t.mu.Unlock()

	t.deliver(r, Notification{Kind: Expired, Elapsed: steps})

	t.mu.Lock()
	if t.expiring == r {
		t.expiring = nil
	}
	t.mu.Unlock()
}

// deliver sends n unless the run has been cancelled. A pending stop wins
// over a ready receiver.
func (t *Timer) deliver(r *run, n Notification) bool {
	select {
	case <-r.stop:
		return false
	default:
	}
	select {
	case t.c <- n:
		return true
	case <-r.stop:
		return false
	}
}
