package hw

import (
	"fmt"
	"sync"
)

// Display shows remaining time and power level.
type Display struct {
	out Output

	mu   sync.Mutex
	last string
}

// NewDisplay creates a display writing to out.
func NewDisplay(out Output) *Display {
	return &Display{out: out}
}

// ShowTime shows mm:ss.
func (d *Display) ShowTime(min, sec int) {
	d.show(fmt.Sprintf("%02d:%02d", min, sec))
}

// ShowPower shows a power level in watts.
func (d *Display) ShowPower(watts int) {
	d.show(fmt.Sprintf("%d W", watts))
}

// Clear blanks the display.
func (d *Display) Clear() {
	d.mu.Lock()
	d.last = ""
	d.mu.Unlock()
	d.out.OutputLine("Display cleared")
}

// Last returns what the display currently shows, empty when cleared.
func (d *Display) Last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Display) show(text string) {
	d.mu.Lock()
	d.last = text
	d.mu.Unlock()
	d.out.OutputLine("Display shows: " + text)
}
