package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"github.com/sweeney/microwave/internal/logger"
)

// Panel is the front-panel state machine. Events are handled one at a time.
type Panel struct {
	display  Display
	light    Light
	cooker   Cooker
	settings Settings
	log      *logger.Logger

	mu        sync.Mutex
	machine   *fsm.FSM
	sel       Selection
	doorFrom  State     // state the door interrupted
	doorSaved Selection // selection at the time the door opened
	observers []Observer
}

// Option configures a Panel.
type Option func(*Panel)

// WithSettings overrides DefaultSettings.
func WithSettings(s Settings) Option {
	return func(p *Panel) { p.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Panel) { p.log = logger.OrNop(l) }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(p *Panel) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// New creates a panel in StateReady.
func New(d Display, l Light, c Cooker, opts ...Option) *Panel {
	p := &Panel{
		display:  d,
		light:    l,
		cooker:   c,
		settings: DefaultSettings(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	// Only the edges below exist. Any other event in any state is ignored.
	p.machine = fsm.NewFSM(
		string(StateReady),
		fsm.Events{
			{Name: string(EventPowerPressed), Src: states(StateReady, StateSettingPower), Dst: string(StateSettingPower)},
			{Name: string(EventTimePressed), Src: states(StateSettingPower, StateSettingTime), Dst: string(StateSettingTime)},
			{Name: string(EventStartCancelPressed), Src: states(StateSettingTime), Dst: string(StateCooking)},
			{Name: string(EventStartCancelPressed), Src: states(StateCooking, StateSettingPower), Dst: string(StateReady)},
			{Name: string(EventDoorOpened), Src: states(StateReady, StateSettingPower, StateSettingTime, StateCooking), Dst: string(StateDoorOpen)},
			{Name: string(EventDoorClosed), Src: states(StateDoorOpen), Dst: string(StateReady)},
			{Name: string(EventCookingDone), Src: states(StateCooking), Dst: string(StateReady)},
		},
		fsm.Callbacks{
			"before_" + string(EventPowerPressed):       p.onPowerPressed,
			"before_" + string(EventTimePressed):        p.onTimePressed,
			"before_" + string(EventStartCancelPressed): p.onStartCancelPressed,
			"before_" + string(EventDoorOpened):         p.onDoorOpened,
			"before_" + string(EventDoorClosed):         p.onDoorClosed,
			"before_" + string(EventCookingDone):        p.onCookingDone,
			"enter_" + string(StateReady):               p.onEnterReady,
		},
	)
	return p
}

func states(ss ...State) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

// State returns the current panel state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State(p.machine.Current())
}

// Selection returns the accumulated power and time.
func (p *Panel) Selection() Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sel
}

// Handle applies one event. Events with no edge from the current state are
// ignored and return nil. If an action fails the state does not change and
// the error is returned.
func (p *Panel) Handle(ctx context.Context, ev Event) error {
	p.mu.Lock()
	from := State(p.machine.Current())
	err := p.machine.Event(ctx, string(ev))

	var (
		invalid      fsm.InvalidEventError
		noTransition fsm.NoTransitionError
		canceled     fsm.CanceledError
	)
	switch {
	case err == nil:
	case errors.As(err, &invalid):
		observers := p.observers
		p.mu.Unlock()
		p.log.Debugw("event ignored", "event", ev, "state", from)
		for _, o := range observers {
			o.Ignored(from, ev)
		}
		return nil
	case errors.As(err, &noTransition) && noTransition.Err == nil:
		// Self-transition, e.g. another power press while setting power.
	case errors.As(err, &canceled):
		p.mu.Unlock()
		p.log.Warnw("event failed", "event", ev, "state", from, "err", canceled.Err)
		return fmt.Errorf("%s in %s: %w", ev, from, canceled.Err)
	default:
		p.mu.Unlock()
		return fmt.Errorf("%s in %s: %w", ev, from, err)
	}

	if ev == EventDoorClosed {
		p.resumeLocked()
	}
	to := State(p.machine.Current())
	observers := p.observers
	p.mu.Unlock()

	if from != to {
		p.log.Debugw("panel transition", "event", ev, "from", from, "to", to)
		for _, o := range observers {
			o.Transitioned(from, to, ev)
		}
	}
	return nil
}

// CookingIsDone is called by the cook controller when a session completes.
func (p *Panel) CookingIsDone() {
	if err := p.Handle(context.Background(), EventCookingDone); err != nil {
		p.log.Errorw("cooking done", "err", err)
	}
}

// resumeLocked restores an interrupted setting under DoorResume. It runs
// after the door_closed transition has completed, outside fsm callbacks.
func (p *Panel) resumeLocked() {
	if p.settings.DoorPolicy != DoorResume {
		return
	}
	switch p.doorFrom {
	case StateSettingPower:
		p.machine.SetState(string(StateSettingPower))
		p.sel = p.doorSaved
		p.display.ShowPower(p.sel.Power)
	case StateSettingTime:
		p.machine.SetState(string(StateSettingTime))
		p.sel = p.doorSaved
		p.display.ShowTime(p.sel.Seconds/60, p.sel.Seconds%60)
	}
}

func (p *Panel) onPowerPressed(_ context.Context, e *fsm.Event) {
	next := p.sel.Power + p.settings.PowerStep
	if State(e.Src) == StateReady || next > p.settings.MaxPower {
		next = p.settings.PowerStep
	}
	p.sel.Power = next
	p.display.ShowPower(p.sel.Power)
}

func (p *Panel) onTimePressed(_ context.Context, e *fsm.Event) {
	if State(e.Src) == StateSettingPower {
		p.sel.Seconds = p.settings.TimeStep
	} else {
		p.sel.Seconds += p.settings.TimeStep
	}
	p.display.ShowTime(p.sel.Seconds/60, p.sel.Seconds%60)
}

func (p *Panel) onStartCancelPressed(_ context.Context, e *fsm.Event) {
	switch State(e.Src) {
	case StateSettingTime:
		if err := p.light.TurnOn(); err != nil {
			e.Cancel(fmt.Errorf("light on: %w", err))
			return
		}
		if err := p.cooker.StartCooking(p.sel.Power, p.sel.Seconds); err != nil {
			if offErr := p.light.TurnOff(); offErr != nil {
				p.log.Errorw("light off after failed start", "err", offErr)
			}
			e.Cancel(fmt.Errorf("start cooking: %w", err))
		}

	case StateCooking:
		// The cook controller turns the tube off and clears the display.
		if err := p.cooker.Stop(); err != nil {
			e.Cancel(fmt.Errorf("stop cooking: %w", err))
			return
		}
		// The session is gone; a light failure must not hold the panel in Cooking.
		if err := p.light.TurnOff(); err != nil {
			p.log.Errorw("light off after cancel", "err", err)
		}

	case StateSettingPower:
		if err := p.light.TurnOff(); err != nil {
			e.Cancel(fmt.Errorf("light off: %w", err))
			return
		}
		p.display.Clear()
	}
}

func (p *Panel) onDoorOpened(_ context.Context, e *fsm.Event) {
	src := State(e.Src)
	if src == StateCooking {
		if err := p.cooker.Stop(); err != nil {
			e.Cancel(fmt.Errorf("stop cooking: %w", err))
			return
		}
		// Already on while cooking, so this records nothing.
		if err := p.light.TurnOn(); err != nil {
			p.log.Errorw("light on after door opened", "err", err)
		}
		p.doorFrom = src
		p.doorSaved = Selection{}
		return
	}

	if err := p.light.TurnOn(); err != nil {
		e.Cancel(fmt.Errorf("light on: %w", err))
		return
	}
	p.display.Clear()
	p.doorFrom = src
	p.doorSaved = p.sel
}

func (p *Panel) onDoorClosed(_ context.Context, e *fsm.Event) {
	if err := p.light.TurnOff(); err != nil {
		e.Cancel(fmt.Errorf("light off: %w", err))
	}
}

func (p *Panel) onCookingDone(_ context.Context, _ *fsm.Event) {
	// The display was cleared when the session finished.
	if err := p.light.TurnOff(); err != nil {
		p.log.Errorw("light off after cooking", "err", err)
	}
}

func (p *Panel) onEnterReady(_ context.Context, _ *fsm.Event) {
	p.sel = Selection{}
}
