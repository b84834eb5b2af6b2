//go:build linux

package gpio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Board drives the oven from actual hardware using Linux GPIO character device.
// Buttons pull their line low when pressed. The door line reads high while
// the door is open.
type Board struct {
	chip     *gpiocdev.Chip
	pins     Pins
	debounce time.Duration
	tube     *gpiocdev.Line
	light    *gpiocdev.Line
}

// NewBoard opens chip and claims the tube and light lines as outputs, off.
func NewBoard(chipName string, pins Pins, debounce time.Duration) (*Board, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	tube, err := chip.RequestLine(pins.Tube, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request tube pin %d: %w", pins.Tube, err)
	}
	light, err := chip.RequestLine(pins.Light, gpiocdev.AsOutput(0))
	if err != nil {
		tube.Close()
		chip.Close()
		return nil, fmt.Errorf("request light pin %d: %w", pins.Light, err)
	}

	return &Board{
		chip:     chip,
		pins:     pins,
		debounce: debounce,
		tube:     tube,
		light:    light,
	}, nil
}

// TubeSwitch returns the power tube relay.
func (b *Board) TubeSwitch() *Switch {
	return &Switch{line: b.tube}
}

// LightSwitch returns the cavity light relay.
func (b *Board) LightSwitch() *Switch {
	return &Switch{line: b.light}
}

// Watch requests the input lines with edge detection and forwards edges to
// sink until ctx is cancelled.
func (b *Board) Watch(ctx context.Context, sink func(Input)) error {
	button := func(in Input) func(gpiocdev.LineEvent) {
		return func(gpiocdev.LineEvent) { sink(in) }
	}
	door := func(evt gpiocdev.LineEvent) {
		if evt.Type == gpiocdev.LineEventRisingEdge {
			sink(InputDoorOpened)
		} else {
			sink(InputDoorClosed)
		}
	}

	inputs := []struct {
		name    string
		offset  int
		edge    gpiocdev.LineReqOption
		handler func(gpiocdev.LineEvent)
	}{
		{"power", b.pins.Power, gpiocdev.WithFallingEdge, button(InputPower)},
		{"time", b.pins.Time, gpiocdev.WithFallingEdge, button(InputTime)},
		{"startcancel", b.pins.StartCancel, gpiocdev.WithFallingEdge, button(InputStartCancel)},
		{"door", b.pins.Door, gpiocdev.WithBothEdges, door},
	}

	var lines []*gpiocdev.Line
	defer func() {
		for _, l := range lines {
			l.Close()
		}
	}()
	for _, in := range inputs {
		l, err := b.chip.RequestLine(in.offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			in.edge,
			gpiocdev.WithDebounce(b.debounce),
			gpiocdev.WithEventHandler(in.handler),
		)
		if err != nil {
			return fmt.Errorf("request %s pin %d: %w", in.name, in.offset, err)
		}
		lines = append(lines, l)
	}

	<-ctx.Done()
	return nil
}

// Close drives both outputs low and releases GPIO resources.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing to ensure clean state for system shutdown/reboot.
func (b *Board) Close() error {
	var errs []error
	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{{"tube", b.tube}, {"light", b.light}} {
		if l.line == nil {
			continue
		}
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch %s off: %w", l.name, err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Switch is an output line. It satisfies hw.Switch.
type Switch struct {
	line *gpiocdev.Line
}

// Set drives the line high for on.
func (s *Switch) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return s.line.SetValue(v)
}
