package cook

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/microwave/internal/hw"
	"github.com/sweeney/microwave/internal/logger"
	"github.com/sweeney/microwave/internal/timer"
)

// Controller owns the cooking session. All session state is guarded by mu,
// so timer notifications racing a Stop finalize a session at most once.
type Controller struct {
	timer    Timer
	display  Display
	tube     PowerTube
	maxPower int
	now      func() time.Time
	log      *logger.Logger

	mu        sync.Mutex
	notifier  Notifier
	observers []Observer
	session   *Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxPower sets the upper power limit in watts.
func WithMaxPower(watts int) Option {
	return func(c *Controller) {
		if watts > 0 {
			c.maxPower = watts
		}
	}
}

// WithObserver adds a session lifecycle observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = logger.OrNop(l) }
}

// WithClock overrides time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates an idle controller.
func New(t Timer, d Display, p PowerTube, opts ...Option) *Controller {
	c := &Controller{
		timer:    t,
		display:  d,
		tube:     p,
		maxPower: hw.DefaultMaxPower,
		now:      time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetNotifier binds the party told about completed sessions. It is set once
// during composition, after both sides exist.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

// MaxPower returns the upper power limit in watts.
func (c *Controller) MaxPower() int {
	return c.maxPower
}

// StartCooking turns the tube on at power watts and starts counting seconds down.
func (c *Controller) StartCooking(power, seconds int) error {
	if power < 1 || power > c.maxPower {
		return fmt.Errorf("start cooking at %d W (max %d): %w", power, c.maxPower, ErrOutOfRange)
	}
	if seconds <= 0 {
		return fmt.Errorf("start cooking for %ds: %w", seconds, ErrOutOfRange)
	}

	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if err := c.tube.TurnOn(power); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("turn on power tube: %w", err)
	}
	if err := c.timer.Start(seconds); err != nil {
		if offErr := c.tube.TurnOff(); offErr != nil {
			c.log.Errorw("power tube off after timer failure", "err", offErr)
		}
		c.mu.Unlock()
		return fmt.Errorf("start timer: %w", err)
	}
	c.session = &Session{
		ID:        uuid.NewString(),
		Power:     power,
		Duration:  seconds,
		Remaining: seconds,
		StartedAt: c.now(),
	}
	s := *c.session
	observers := c.observers
	c.mu.Unlock()

	c.log.Infow("cooking started", "session", s.ID, "power", power, "seconds", seconds)
	for _, o := range observers {
		o.SessionStarted(s)
	}
	return nil
}

// Stop cancels the active session: the timer is stopped, the tube turned
// off and the display cleared. It is a no-op without a session. If the tube
// cannot be turned off the session survives and the next Stop retries.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil
	}
	c.timer.Stop()
	s, err := c.finishLocked()
	observers := c.observers
	c.mu.Unlock()
	if err != nil {
		return err
	}

	outcome := OutcomeCancelled
	if s.expired {
		outcome = OutcomeCompleted
		c.log.Infow("cooking completed after retry", "session", s.ID)
	} else {
		c.log.Infow("cooking cancelled", "session", s.ID, "remaining", s.Remaining)
	}
	for _, o := range observers {
		o.SessionFinished(s, outcome)
	}
	return nil
}

// HandleTimer applies a timer notification to the active session.
// Notifications arriving without a session are stale and dropped.
func (c *Controller) HandleTimer(n timer.Notification) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		c.log.Debugw("timer notification without session", "kind", n.Kind, "elapsed", n.Elapsed)
		return
	}

	switch n.Kind {
	case timer.Tick:
		remaining := c.session.Duration - n.Elapsed
		if remaining < 0 {
			remaining = 0
		}
		if remaining > c.session.Remaining {
			remaining = c.session.Remaining
		}
		c.session.Remaining = remaining
		c.display.ShowTime(remaining/60, remaining%60)
		s := *c.session
		observers := c.observers
		c.mu.Unlock()
		for _, o := range observers {
			o.SessionTicked(s)
		}

	case timer.Expired:
		c.session.Remaining = 0
		c.session.expired = true
		s, err := c.finishLocked()
		observers, notifier := c.observers, c.notifier
		c.mu.Unlock()
		if err != nil {
			// The panel stays in Cooking until a Stop succeeds.
			c.log.Errorw("power tube still on after expiry", "session", s.ID, "err", err)
			return
		}
		c.log.Infow("cooking completed", "session", s.ID)
		for _, o := range observers {
			o.SessionFinished(s, OutcomeCompleted)
		}
		if notifier != nil {
			notifier.CookingIsDone()
		}

	default:
		c.mu.Unlock()
	}
}

// Session returns a copy of the active session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// finishLocked turns the tube off, then clears the display and destroys the
// session. The session is kept when the tube stays on. Caller holds mu.
func (c *Controller) finishLocked() (Session, error) {
	if err := c.tube.TurnOff(); err != nil {
		return *c.session, fmt.Errorf("turn off power tube: %w", err)
	}
	s := *c.session
	s.EndedAt = c.now()
	c.session = nil
	c.display.Clear()
	return s, nil
}
