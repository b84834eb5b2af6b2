package hw

import (
	"fmt"
	"sync"
)

// PowerTube is the magnetron. An optional Switch drives the physical relay.
type PowerTube struct {
	out      Output
	sw       Switch
	maxPower int

	mu    sync.Mutex
	on    bool
	power int
}

// NewPowerTube creates a power tube accepting [1, maxPower] watts.
// A non-positive maxPower selects DefaultMaxPower; sw may be nil.
func NewPowerTube(out Output, maxPower int, sw Switch) *PowerTube {
	if maxPower <= 0 {
		maxPower = DefaultMaxPower
	}
	return &PowerTube{out: out, sw: sw, maxPower: maxPower}
}

// MaxPower returns the upper power limit in watts.
func (p *PowerTube) MaxPower() int {
	return p.maxPower
}

// TurnOn starts the tube at the given power.
func (p *PowerTube) TurnOn(power int) error {
	if power < 1 || power > p.maxPower {
		return fmt.Errorf("turn on at %d W (max %d): %w", power, p.maxPower, ErrOutOfRange)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.on {
		return ErrAlreadyOn
	}
	if p.sw != nil {
		if err := p.sw.Set(true); err != nil {
			return fmt.Errorf("switch power tube on: %w", err)
		}
	}
	p.on = true
	p.power = power
	p.out.OutputLine(fmt.Sprintf("PowerTube works with %d W", power))
	return nil
}

// TurnOff stops the tube. Turning off an idle tube is a silent no-op.
func (p *PowerTube) TurnOff() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return nil
	}
	if p.sw != nil {
		if err := p.sw.Set(false); err != nil {
			return fmt.Errorf("switch power tube off: %w", err)
		}
	}
	p.on = false
	p.power = 0
	p.out.OutputLine("PowerTube turned off")
	return nil
}

// IsOn reports whether the tube is running and at what power.
func (p *PowerTube) IsOn() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on, p.power
}
