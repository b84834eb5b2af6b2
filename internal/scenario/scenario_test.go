package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/microwave/internal/hw"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/panel"
)

const quickCook = `
name: quick cook
steps:
  - press: power
  - press: power
  - press: time
  - expect: setting_time
  - press: startcancel
  - expect: cooking
  - wait: 30ms
  - door: open
  - expect: door_open
  - door: close
  - expect: ready
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(quickCook))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sc.Name != "quick cook" {
		t.Errorf("Name: got %q", sc.Name)
	}
	if len(sc.Steps) != 11 {
		t.Fatalf("steps: got %d, want 11", len(sc.Steps))
	}
	if sc.Steps[6].Wait != Duration(30*time.Millisecond) {
		t.Errorf("wait: got %v, want 30ms", time.Duration(sc.Steps[6].Wait))
	}
	if got := sc.Steps[7].String(); got != "door open" {
		t.Errorf("String: got %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "   ", "empty"},
		{"no steps", "name: x\n", "no steps"},
		{"unknown button", "steps:\n  - press: defrost\n", "unknown button"},
		{"unknown door", "steps:\n  - door: slam\n", "unknown door"},
		{"bad wait", "steps:\n  - wait: soon\n", "soon"},
		{"two actions", "steps:\n  - press: power\n    door: open\n", "exactly one"},
		{"no action", "steps:\n  - {}\n", "exactly one"},
		{"unknown state", "steps:\n  - expect: burning\n", "unknown state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick.yaml")
	if err := os.WriteFile(path, []byte(quickCook), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(sc.Steps) != 11 {
		t.Errorf("steps: got %d", len(sc.Steps))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func startOven(t *testing.T) (*oven.Oven, *hw.RecordingOutput) {
	t.Helper()
	out := hw.NewRecordingOutput()
	ov := oven.New(out, oven.WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ov.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ov, out
}

func TestRunAgainstOven(t *testing.T) {
	ov, out := startOven(t)
	sc, err := Parse([]byte(quickCook))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var done []string
	if err := Run(context.Background(), ov, sc, func(_ int, st Step) {
		done = append(done, st.String())
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(done) != len(sc.Steps) {
		t.Errorf("progress: got %d steps, want %d", len(done), len(sc.Steps))
	}
	if n := out.Count("PowerTube works with 100 W"); n != 1 {
		t.Errorf("tube on records: got %d, want 1", n)
	}
	if n := out.Count("PowerTube turned off"); n != 1 {
		t.Errorf("tube off records: got %d, want 1", n)
	}
}

func TestRunFailedExpectation(t *testing.T) {
	ov, _ := startOven(t)
	sc := Scenario{Steps: []Step{{Press: "power"}, {Expect: "cooking"}}}

	err := Run(context.Background(), ov, sc, nil)
	if !errors.Is(err, ErrExpectation) {
		t.Fatalf("got %v, want ErrExpectation", err)
	}
	if !strings.Contains(err.Error(), "step 2") {
		t.Errorf("error should name the step: %v", err)
	}
}

type stubTarget struct {
	events []panel.Event
	err    error
}

func (s *stubTarget) Do(_ context.Context, ev panel.Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func (s *stubTarget) State() oven.State { return oven.State{Panel: panel.StateReady} }

func TestRunMapsSteps(t *testing.T) {
	st := &stubTarget{}
	sc := Scenario{Steps: []Step{
		{Press: "power"}, {Press: "time"}, {Press: "startcancel"}, {Door: "open"}, {Door: "close"},
	}}
	if err := Run(context.Background(), st, sc, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []panel.Event{
		panel.EventPowerPressed, panel.EventTimePressed, panel.EventStartCancelPressed,
		panel.EventDoorOpened, panel.EventDoorClosed,
	}
	if !reflect.DeepEqual(st.events, want) {
		t.Errorf("events: got %v, want %v", st.events, want)
	}
}

func TestRunStopsOnError(t *testing.T) {
	st := &stubTarget{err: errors.New("tube fault")}
	sc := Scenario{Steps: []Step{{Press: "power"}, {Press: "time"}}}
	if err := Run(context.Background(), st, sc, nil); err == nil {
		t.Fatal("expected error")
	}
	if len(st.events) != 1 {
		t.Errorf("events after failure: got %d, want 1", len(st.events))
	}
}

func TestRunWaitRespectsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	sc := Scenario{Steps: []Step{{Wait: Duration(time.Hour)}}}

	start := time.Now()
	err := Run(ctx, &stubTarget{}, sc, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait ignored the context")
	}
}
