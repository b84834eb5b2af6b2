// Package scenario loads scripted oven sessions from YAML and plays them
// against an oven.
package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/panel"
	"gopkg.in/yaml.v3"
)

// ErrExpectation is returned when an expect step does not match the oven.
var ErrExpectation = errors.New("scenario: expectation failed")

// Duration is a time.Duration written as "1.5s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Press  string   `yaml:"press,omitempty"`  // power, time, startcancel
	Door   string   `yaml:"door,omitempty"`   // open, close
	Wait   Duration `yaml:"wait,omitempty"`   // pause before the next step
	Expect string   `yaml:"expect,omitempty"` // panel state the oven must be in
}

// Scenario is a named list of steps.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (Scenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Scenario{}, fmt.Errorf("scenario: payload is empty")
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("scenario: decode: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Load reads a scenario from r.
func Load(r io.Reader) (Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: read: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a scenario from path.
func LoadFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Validate checks every step names exactly one known action.
func (sc Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario: no steps")
	}
	for i, st := range sc.Steps {
		set := 0
		if st.Press != "" {
			set++
			if _, err := oven.ParseButton(st.Press); err != nil {
				return fmt.Errorf("scenario: step %d: %w", i+1, err)
			}
		}
		if st.Door != "" {
			set++
			if _, err := oven.ParseDoor(st.Door); err != nil {
				return fmt.Errorf("scenario: step %d: %w", i+1, err)
			}
		}
		if st.Wait != 0 {
			set++
			if st.Wait < 0 {
				return fmt.Errorf("scenario: step %d: negative wait", i+1)
			}
		}
		if st.Expect != "" {
			set++
			if !knownState(panel.State(st.Expect)) {
				return fmt.Errorf("scenario: step %d: unknown state %q", i+1, st.Expect)
			}
		}
		if set != 1 {
			return fmt.Errorf("scenario: step %d: want exactly one of press, door, wait, expect (got %d)", i+1, set)
		}
	}
	return nil
}

func knownState(s panel.State) bool {
	switch s {
	case panel.StateReady, panel.StateSettingPower, panel.StateSettingTime, panel.StateCooking, panel.StateDoorOpen:
		return true
	}
	return false
}

// Target is what a scenario drives. *oven.Oven satisfies it.
type Target interface {
	Do(ctx context.Context, ev panel.Event) error
	State() oven.State
}

// Run plays sc against t, stopping at the first failed step or when ctx is
// cancelled. Each completed step is reported to progress, which may be nil.
func Run(ctx context.Context, t Target, sc Scenario, progress func(i int, st Step)) error {
	for i, st := range sc.Steps {
		if err := runStep(ctx, t, st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if progress != nil {
			progress(i, st)
		}
	}
	return nil
}

func runStep(ctx context.Context, t Target, st Step) error {
	switch {
	case st.Press != "":
		ev, err := oven.ParseButton(st.Press)
		if err != nil {
			return err
		}
		return t.Do(ctx, ev)

	case st.Door != "":
		ev, err := oven.ParseDoor(st.Door)
		if err != nil {
			return err
		}
		return t.Do(ctx, ev)

	case st.Wait > 0:
		timer := time.NewTimer(time.Duration(st.Wait))
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case st.Expect != "":
		if got := t.State().Panel; got != panel.State(st.Expect) {
			return fmt.Errorf("state %s, want %s: %w", got, st.Expect, ErrExpectation)
		}
		return nil
	}
	return nil
}

// String describes the step for progress output.
func (st Step) String() string {
	switch {
	case st.Press != "":
		return "press " + st.Press
	case st.Door != "":
		return "door " + st.Door
	case st.Wait != 0:
		return "wait " + time.Duration(st.Wait).String()
	case st.Expect != "":
		return "expect " + st.Expect
	}
	return "noop"
}
