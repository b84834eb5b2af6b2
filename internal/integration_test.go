package internal

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sweeney/microwave/internal/cook"
	"github.com/sweeney/microwave/internal/gpio"
	"github.com/sweeney/microwave/internal/history"
	"github.com/sweeney/microwave/internal/hw"
	"github.com/sweeney/microwave/internal/metrics"
	"github.com/sweeney/microwave/internal/mqtt"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/panel"
	"github.com/sweeney/microwave/internal/scenario"
	"github.com/sweeney/microwave/internal/status"
)

// rig is a fully wired oven with every output backed by a fake.
type rig struct {
	oven    *oven.Oven
	out     *hw.RecordingOutput
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	metrics *metrics.Metrics
	tube    *hw.FakeSwitch
	light   *hw.FakeSwitch
}

func newRig(t *testing.T, settings panel.Settings, extra ...oven.Option) *rig {
	t.Helper()
	r := &rig{
		out:     hw.NewRecordingOutput(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Now(), status.Config{}),
		metrics: metrics.New(),
		tube:    &hw.FakeSwitch{},
		light:   &hw.FakeSwitch{},
	}
	fw := mqtt.NewForwarder(r.pub, nil)

	opts := append([]oven.Option{
		oven.WithInterval(5 * time.Millisecond),
		oven.WithSettings(settings),
		oven.WithSwitches(r.tube, r.light),
		oven.WithCookObserver(r.tracker),
		oven.WithCookObserver(r.metrics),
		oven.WithPanelObserver(r.tracker),
		oven.WithPanelObserver(r.metrics),
		oven.WithListener(r.tracker.Update),
	}, extra...)
	r.oven = oven.New(hw.Tee(r.out, fw), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	ovenDone := make(chan struct{})
	fwDone := make(chan struct{})
	fwCtx, stopFw := context.WithCancel(context.Background())
	go func() {
		r.oven.Run(ctx)
		close(ovenDone)
	}()
	go func() {
		fw.Run(fwCtx)
		close(fwDone)
	}()
	t.Cleanup(func() {
		cancel()
		<-ovenDone
		stopFw()
		<-fwDone
	})
	return r
}

// watch feeds inputs to the oven the way the daemon does.
func (r *rig) watch(t *testing.T, src gpio.Source) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		src.Watch(ctx, func(in gpio.Input) {
			events := map[gpio.Input]panel.Event{
				gpio.InputPower:       panel.EventPowerPressed,
				gpio.InputTime:        panel.EventTimePressed,
				gpio.InputStartCancel: panel.EventStartCancelPressed,
				gpio.InputDoorOpened:  panel.EventDoorOpened,
				gpio.InputDoorClosed:  panel.EventDoorClosed,
			}
			r.oven.Submit(ctx, events[in])
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func counter(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func settings(timeStep int) panel.Settings {
	s := panel.DefaultSettings()
	s.TimeStep = timeStep
	return s
}

// TestIntegrationFullFlow drives a complete session from GPIO inputs to MQTT.
func TestIntegrationFullFlow(t *testing.T) {
	r := newRig(t, settings(2))
	r.watch(t, gpio.NewFakeInputs(
		gpio.InputPower, gpio.InputPower, gpio.InputPower,
		gpio.InputTime,
		gpio.InputStartCancel,
	))

	waitFor(t, "session to finish", func() bool {
		return r.out.Count("Light is turned off") == 1
	})

	want := []string{
		"Display shows: 50 W",
		"Display shows: 100 W",
		"Display shows: 150 W",
		"Display shows: 00:02",
		"Light is turned on",
		"PowerTube works with 150 W",
		"Display shows: 00:01",
		"Display shows: 00:00",
		"PowerTube turned off",
		"Display cleared",
		"Light is turned off",
	}
	if got := r.out.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("records:\ngot:  %q\nwant: %q", got, want)
	}
	waitFor(t, "records forwarded", func() bool { return len(r.pub.Lines()) == len(want) })
	if got := r.pub.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("mqtt records:\ngot:  %q\nwant: %q", got, want)
	}

	if got := r.tube.Snapshot(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("tube switch: got %v", got)
	}
	if got := r.light.Snapshot(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("light switch: got %v", got)
	}

	snap := r.tracker.Snapshot()
	if snap.Counts.Started != 1 || snap.Counts.Completed != 1 {
		t.Errorf("counts: got %+v", snap.Counts)
	}
	if snap.Oven.Panel != panel.StateReady || snap.Oven.Session != nil {
		t.Errorf("final state: got %+v", snap.Oven)
	}
	if got := counter(t, r.metrics, "microwave_timer_ticks_total"); got != 2 {
		t.Errorf("ticks: got %v, want 2", got)
	}
}

func TestIntegrationPayloadFormat(t *testing.T) {
	r := newRig(t, settings(1))
	r.watch(t, gpio.NewFakeInputs(gpio.InputPower))

	waitFor(t, "record forwarded", func() bool { return len(r.pub.Lines()) == 1 })

	r.pub.Reset()
	ctx := context.Background()
	if err := r.oven.Do(ctx, panel.EventPowerPressed); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "record forwarded", func() bool { return len(r.pub.Lines()) == 1 })

	var payload mqtt.RecordPayload
	if err := json.Unmarshal(r.pub.RecordPayloads[0], &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload.Output.Record != "Display shows: 100 W" {
		t.Errorf("record: got %q", payload.Output.Record)
	}
	if _, err := time.Parse(time.RFC3339, payload.Output.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", payload.Output.Timestamp, err)
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	r := newRig(t, settings(1))
	r.pub.PublishError = errors.New("broker down")
	r.watch(t, gpio.NewFakeInputs(gpio.InputPower, gpio.InputTime, gpio.InputStartCancel))

	waitFor(t, "session to finish", func() bool {
		return r.tracker.Snapshot().Counts.Completed == 1
	})
	if len(r.pub.Lines()) != 0 {
		t.Errorf("nothing should reach the broker, got %q", r.pub.Lines())
	}
}

func TestIntegrationDoorInterruptRecordedInHistory(t *testing.T) {
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	store := history.NewStore(db)

	rec := history.NewRecorder(store, nil)
	recCtx, stopRec := context.WithCancel(context.Background())
	recDone := make(chan struct{})
	go func() {
		rec.Run(recCtx)
		close(recDone)
	}()
	t.Cleanup(func() {
		stopRec()
		<-recDone
	})

	s := settings(60)
	r := newRig(t, s, oven.WithCookObserver(rec))
	inputs := gpio.NewFakeInputs(gpio.InputPower, gpio.InputPower, gpio.InputTime, gpio.InputStartCancel)
	r.watch(t, inputs)

	waitFor(t, "a few ticks", func() bool {
		snap := r.tracker.Snapshot()
		return snap.Oven.Session != nil && snap.Oven.Session.Remaining <= 57
	})
	if err := inputs.Inject(context.Background(), gpio.InputDoorOpened); err != nil {
		t.Fatal(err)
	}

	var entries []history.Entry
	waitFor(t, "session recorded", func() bool {
		entries, err = store.List(context.Background(), 10)
		return err == nil && len(entries) == 1
	})
	e := entries[0]
	if e.Outcome != cook.OutcomeCancelled || e.Power != 100 || e.Duration != 60 {
		t.Errorf("entry: got %+v", e)
	}
	if e.Remaining <= 0 || e.Remaining > 57 {
		t.Errorf("remaining: got %d", e.Remaining)
	}

	// The light stays on while the door is open.
	snap := r.tracker.Snapshot()
	if snap.Oven.Panel != panel.StateDoorOpen || !snap.Oven.LightOn || snap.Oven.TubeOn {
		t.Errorf("door open state: got %+v", snap.Oven)
	}
	if got := counter(t, r.metrics, "microwave_sessions_finished_total"); got != 1 {
		t.Errorf("finished counter: got %v", got)
	}
}

func TestIntegrationStatusEventAfterSession(t *testing.T) {
	r := newRig(t, settings(1))
	r.watch(t, gpio.NewFakeInputs(
		gpio.InputPower, gpio.InputTime, gpio.InputStartCancel,
		gpio.InputDoorClosed, // ignored while cooking
	))

	waitFor(t, "session to finish", func() bool {
		return r.tracker.Snapshot().Counts.Completed == 1
	})

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatStatusEvent(r.tracker.Snapshot(), "STATE"), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	inner := parsed.Status
	if inner.Event != "STATE" || inner.Oven.State != "ready" {
		t.Errorf("status: got event %q state %q", inner.Event, inner.Oven.State)
	}
	if inner.Counts.Started != 1 || inner.Counts.Completed != 1 || inner.Counts.Ignored != 1 {
		t.Errorf("counts: got %+v", inner.Counts)
	}
}

func TestIntegrationScenarioResumePolicy(t *testing.T) {
	s := settings(30)
	s.DoorPolicy = panel.DoorResume
	r := newRig(t, s)

	sc, err := scenario.Parse([]byte(`
name: resume after door
steps:
  - press: power
  - press: time
  - door: open
  - expect: door_open
  - door: close
  - expect: setting_time
  - press: time
  - press: startcancel
  - expect: cooking
  - press: startcancel
  - expect: ready
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := scenario.Run(context.Background(), r.oven, sc, nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	if n := r.out.Count("PowerTube works with 50 W"); n != 1 {
		t.Errorf("tube on: got %d", n)
	}
	if sel := r.tracker.Snapshot().Oven.Selection; sel != (panel.Selection{}) {
		t.Errorf("selection after cancel: got %+v", sel)
	}
	if got := counter(t, r.metrics, "microwave_sessions_started_total"); got != 1 {
		t.Errorf("started counter: got %v", got)
	}
}
