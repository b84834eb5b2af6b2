// Package oven wires the actuators, timer, cook controller and panel into one
// oven and feeds every input to it through a single serialized queue.
package oven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/microwave/internal/cook"
	"github.com/sweeney/microwave/internal/hw"
	"github.com/sweeney/microwave/internal/logger"
	"github.com/sweeney/microwave/internal/panel"
	"github.com/sweeney/microwave/internal/timer"
)

// ErrStopped is returned for events submitted after Run has returned.
var ErrStopped = errors.New("oven: not running")

// State is a point-in-time view of the whole oven.
type State struct {
	Panel     panel.State
	Selection panel.Selection
	Session   *cook.Session // nil when idle
	LightOn   bool
	TubeOn    bool
	TubePower int    // watts, 0 when off
	Display   string // empty when cleared
}

// Listener is called on the Run goroutine after every handled input.
type Listener func(State)

// Option configures an Oven.
type Option func(*options)

type options struct {
	interval       time.Duration
	settings       panel.Settings
	tubeSwitch     hw.Switch
	lightSwitch    hw.Switch
	log            *logger.Logger
	cookObservers  []cook.Observer
	panelObservers []panel.Observer
	listeners      []Listener
}

// WithInterval sets the timer step. Tests use milliseconds.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithSettings overrides the panel settings.
func WithSettings(s panel.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithSwitches drives physical lines for the tube and light. Either may be nil.
func WithSwitches(tube, light hw.Switch) Option {
	return func(o *options) {
		o.tubeSwitch = tube
		o.lightSwitch = light
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCookObserver adds a session lifecycle observer.
func WithCookObserver(obs cook.Observer) Option {
	return func(o *options) { o.cookObservers = append(o.cookObservers, obs) }
}

// WithPanelObserver adds a panel transition observer.
func WithPanelObserver(obs panel.Observer) Option {
	return func(o *options) { o.panelObservers = append(o.panelObservers, obs) }
}

// WithListener adds a state listener.
func WithListener(l Listener) Option {
	return func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	}
}

type request struct {
	ev    panel.Event
	reply chan error // nil for fire-and-forget
}

// Oven owns one microwave. Inputs are applied by Run one at a time.
type Oven struct {
	display *hw.Display
	tube    *hw.PowerTube
	light   *hw.Light
	timer   *timer.Timer
	cook    *cook.Controller
	panel   *panel.Panel
	log     *logger.Logger

	listeners []Listener
	requests  chan request
	done      chan struct{}
}

// New builds an oven whose actuators write their records to out.
func New(out hw.Output, opts ...Option) *Oven {
	o := options{
		interval: timer.DefaultInterval,
		settings: panel.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.OrNop(o.log)

	display := hw.NewDisplay(out)
	tube := hw.NewPowerTube(out, o.settings.MaxPower, o.tubeSwitch)
	light := hw.NewLight(out, o.lightSwitch)
	tm := timer.New(timer.WithInterval(o.interval))

	cookOpts := []cook.Option{
		cook.WithMaxPower(tube.MaxPower()),
		cook.WithLogger(log.Named("cook")),
	}
	for _, obs := range o.cookObservers {
		cookOpts = append(cookOpts, cook.WithObserver(obs))
	}
	cooker := cook.New(tm, display, tube, cookOpts...)

	panelOpts := []panel.Option{
		panel.WithSettings(o.settings),
		panel.WithLogger(log.Named("panel")),
	}
	for _, obs := range o.panelObservers {
		panelOpts = append(panelOpts, panel.WithObserver(obs))
	}
	p := panel.New(display, light, cooker, panelOpts...)
	cooker.SetNotifier(p)

	return &Oven{
		display:   display,
		tube:      tube,
		light:     light,
		timer:     tm,
		cook:      cooker,
		panel:     p,
		log:       log,
		listeners: o.listeners,
		requests:  make(chan request, 16),
		done:      make(chan struct{}),
	}
}

// Submit queues ev without waiting for it to be handled.
func (o *Oven) Submit(ctx context.Context, ev panel.Event) error {
	return o.enqueue(ctx, request{ev: ev})
}

// Do queues ev and waits for the panel's result.
func (o *Oven) Do(ctx context.Context, ev panel.Event) error {
	req := request{ev: ev, reply: make(chan error, 1)}
	if err := o.enqueue(ctx, req); err != nil {
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Oven) enqueue(ctx context.Context, req request) error {
	select {
	case <-o.done:
		return ErrStopped
	default:
	}
	select {
	case o.requests <- req:
		return nil
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued events and timer notifications until ctx is cancelled.
// On the way out any session is cancelled and the light switched off.
func (o *Oven) Run(ctx context.Context) error {
	defer close(o.done)
	o.log.Infow("oven running", "interval", o.timer.Interval())
	o.notify()

	for {
		select {
		case <-ctx.Done():
			return o.shutdown()

		case req := <-o.requests:
			err := o.panel.Handle(ctx, req.ev)
			if err != nil {
				o.log.Warnw("event failed", "event", req.ev, "err", err)
			}
			// Listeners see the result before the caller of Do does.
			o.notify()
			if req.reply != nil {
				req.reply <- err
			}

		case n := <-o.timer.C():
			o.cook.HandleTimer(n)
			o.notify()
		}
	}
}

func (o *Oven) shutdown() error {
	var errs []error
	if err := o.cook.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop cooking: %w", err))
	}
	if err := o.light.TurnOff(); err != nil {
		errs = append(errs, fmt.Errorf("light off: %w", err))
	}
	o.notify()
	o.log.Infow("oven stopped")
	return errors.Join(errs...)
}

func (o *Oven) notify() {
	if len(o.listeners) == 0 {
		return
	}
	s := o.State()
	for _, l := range o.listeners {
		l(s)
	}
}

// State returns a snapshot of the oven. It is safe to call from any goroutine.
func (o *Oven) State() State {
	s := State{
		Panel:     o.panel.State(),
		Selection: o.panel.Selection(),
		LightOn:   o.light.IsOn(),
		Display:   o.display.Last(),
	}
	s.TubeOn, s.TubePower = o.tube.IsOn()
	if sess, ok := o.cook.Session(); ok {
		s.Session = &sess
	}
	return s
}

// MaxPower returns the power tube limit in watts.
func (o *Oven) MaxPower() int {
	return o.tube.MaxPower()
}

// ParseButton maps a button name (power, time, startcancel) to its event.
func ParseButton(name string) (panel.Event, error) {
	switch name {
	case "power":
		return panel.EventPowerPressed, nil
	case "time":
		return panel.EventTimePressed, nil
	case "startcancel", "start", "cancel":
		return panel.EventStartCancelPressed, nil
	default:
		return "", fmt.Errorf("unknown button %q", name)
	}
}

// ParseDoor maps a door action (open, close) to its event.
func ParseDoor(action string) (panel.Event, error) {
	switch action {
	case "open":
		return panel.EventDoorOpened, nil
	case "close":
		return panel.EventDoorClosed, nil
	default:
		return "", fmt.Errorf("unknown door action %q", action)
	}
}
