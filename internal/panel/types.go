// Package panel is the oven's front-panel state machine. It turns button
// presses and door events into power/time selections and starts or cancels
// cooking sessions.
package panel

import "fmt"

// State is the front-panel interaction mode.
type State string

const (
	StateReady        State = "ready"
	StateSettingPower State = "setting_power"
	StateSettingTime  State = "setting_time"
	StateCooking      State = "cooking"
	StateDoorOpen     State = "door_open"
)

// Event is something the panel reacts to.
type Event string

const (
	EventPowerPressed       Event = "power_pressed"
	EventTimePressed        Event = "time_pressed"
	EventStartCancelPressed Event = "start_cancel_pressed"
	EventDoorOpened         Event = "door_opened"
	EventDoorClosed         Event = "door_closed"
	EventCookingDone        Event = "cooking_done"
)

// DoorPolicy decides what closing the door restores.
type DoorPolicy string

const (
	// DoorReset discards the selection and returns to Ready.
	DoorReset DoorPolicy = "reset"
	// DoorResume returns to the power/time setting that was interrupted.
	DoorResume DoorPolicy = "resume"
)

// ParseDoorPolicy validates a policy name. Empty selects DoorReset.
func ParseDoorPolicy(s string) (DoorPolicy, error) {
	switch DoorPolicy(s) {
	case "", DoorReset:
		return DoorReset, nil
	case DoorResume:
		return DoorResume, nil
	default:
		return "", fmt.Errorf("unknown door policy %q (want %q or %q)", s, DoorReset, DoorResume)
	}
}

// Settings holds the selection steps.
type Settings struct {
	PowerStep  int // watts per power press
	MaxPower   int // power wraps back to PowerStep after this
	TimeStep   int // seconds per time press
	DoorPolicy DoorPolicy
}

// DefaultSettings returns 50 W steps up to 700 W and one-minute time steps.
func DefaultSettings() Settings {
	return Settings{
		PowerStep:  50,
		MaxPower:   700,
		TimeStep:   60,
		DoorPolicy: DoorReset,
	}
}

// Selection is the power and time accumulated so far. Zero means unset.
type Selection struct {
	Power   int // watts
	Seconds int
}

// Display shows the selection.
type Display interface {
	ShowPower(watts int)
	ShowTime(min, sec int)
	Clear()
}

// Light is the cavity lamp.
type Light interface {
	TurnOn() error
	TurnOff() error
}

// Cooker runs cooking sessions. *cook.Controller satisfies it.
type Cooker interface {
	StartCooking(power, seconds int) error
	Stop() error
}

// Observer follows panel activity.
type Observer interface {
	Transitioned(from, to State, ev Event)
	Ignored(state State, ev Event)
}
