// Package hw implements the oven's output actuators: the display, the power
// tube and the cavity light. Each actuator reports what it does as one
// human-readable line on an Output; none of them holds business logic.
package hw

import "errors"

// DefaultMaxPower is the power tube's upper limit in watts.
const DefaultMaxPower = 700

var (
	// ErrOutOfRange is returned for a power level outside [1, max].
	ErrOutOfRange = errors.New("hw: power out of range")

	// ErrAlreadyOn is returned by PowerTube.TurnOn while the tube is on.
	ErrAlreadyOn = errors.New("hw: power tube already on")
)

// Output receives the records emitted by actuators.
type Output interface {
	OutputLine(line string)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(line string)

// OutputLine calls f(line).
func (f OutputFunc) OutputLine(line string) { f(line) }

// Switch drives a physical on/off line (a relay or a GPIO output).
type Switch interface {
	Set(on bool) error
}
