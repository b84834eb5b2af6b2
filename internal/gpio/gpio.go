// Package gpio connects the oven to its front-panel buttons, door sensor and
// output relays with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"fmt"
)

// Input is a front-panel or door signal.
type Input int

const (
	InputPower Input = iota + 1
	InputTime
	InputStartCancel
	InputDoorOpened
	InputDoorClosed
)

func (i Input) String() string {
	switch i {
	case InputPower:
		return "POWER"
	case InputTime:
		return "TIME"
	case InputStartCancel:
		return "START_CANCEL"
	case InputDoorOpened:
		return "DOOR_OPENED"
	case InputDoorClosed:
		return "DOOR_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Source delivers inputs as they happen.
type Source interface {
	// Watch calls sink for every input until ctx is cancelled. sink may be
	// called from a goroutine other than the caller's.
	Watch(ctx context.Context, sink func(Input)) error

	// Close releases GPIO resources.
	Close() error
}

// Pins holds BCM line offsets.
type Pins struct {
	Power       int
	Time        int
	StartCancel int
	Door        int
	Tube        int
	Light       int
}

// DefaultPins is the reference wiring.
var DefaultPins = Pins{
	Power:       5,
	Time:        6,
	StartCancel: 13,
	Door:        19,
	Tube:        20,
	Light:       21,
}

// Validate reports duplicate or negative offsets.
func (p Pins) Validate() error {
	seen := map[int]string{}
	for _, pin := range []struct {
		name   string
		offset int
	}{
		{"power", p.Power},
		{"time", p.Time},
		{"startcancel", p.StartCancel},
		{"door", p.Door},
		{"tube", p.Tube},
		{"light", p.Light},
	} {
		if pin.offset < 0 {
			return fmt.Errorf("pin %s: negative offset %d", pin.name, pin.offset)
		}
		if other, ok := seen[pin.offset]; ok {
			return fmt.Errorf("pin %s: offset %d already used by %s", pin.name, pin.offset, other)
		}
		seen[pin.offset] = pin.name
	}
	return nil
}
