package hw

import (
	"fmt"
	"sync"
)

// Light is the cavity lamp. Repeated commands for the current state emit
// nothing.
type Light struct {
	out Output
	sw  Switch

	mu sync.Mutex
	on bool
}

// NewLight creates a light writing to out; sw may be nil.
func NewLight(out Output, sw Switch) *Light {
	return &Light{out: out, sw: sw}
}

// TurnOn switches the light on.
func (l *Light) TurnOn() error {
	return l.set(true, "Light is turned on")
}

// TurnOff switches the light off.
func (l *Light) TurnOff() error {
	return l.set(false, "Light is turned off")
}

// IsOn reports whether the light is on.
func (l *Light) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *Light) set(on bool, record string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on == on {
		return nil
	}
	if l.sw != nil {
		if err := l.sw.Set(on); err != nil {
			return fmt.Errorf("switch light: %w", err)
		}
	}
	l.on = on
	l.out.OutputLine(record)
	return nil
}
