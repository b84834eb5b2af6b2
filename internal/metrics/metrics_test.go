package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sweeney/microwave/internal/cook"
	"github.com/sweeney/microwave/internal/panel"
)

func TestSessionCounters(t *testing.T) {
	m := New()

	m.SessionStarted(cook.Session{})
	m.SessionStarted(cook.Session{})
	m.SessionTicked(cook.Session{})
	m.SessionTicked(cook.Session{})
	m.SessionTicked(cook.Session{})
	m.SessionFinished(cook.Session{Duration: 60}, cook.OutcomeCompleted)
	m.SessionFinished(cook.Session{Duration: 60, Remaining: 45}, cook.OutcomeCancelled)

	if got := testutil.ToFloat64(m.sessionsStarted); got != 2 {
		t.Errorf("sessions_started_total: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.timerTicks); got != 3 {
		t.Errorf("timer_ticks_total: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.sessionsFinished.WithLabelValues("completed")); got != 1 {
		t.Errorf("sessions_finished_total{completed}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionsFinished.WithLabelValues("cancelled")); got != 1 {
		t.Errorf("sessions_finished_total{cancelled}: got %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.sessionSeconds); got != 2 {
		t.Errorf("session_cooked_seconds series: got %d, want 2", got)
	}
}

func TestPanelState(t *testing.T) {
	m := New()

	if got := testutil.ToFloat64(m.panelState.WithLabelValues("ready")); got != 1 {
		t.Errorf("initial ready gauge: got %v, want 1", got)
	}

	m.Transitioned(panel.StateReady, panel.StateSettingPower, panel.EventPowerPressed)
	m.Transitioned(panel.StateSettingPower, panel.StateSettingTime, panel.EventTimePressed)

	for _, tt := range []struct {
		state string
		want  float64
	}{
		{"ready", 0},
		{"setting_power", 0},
		{"setting_time", 1},
		{"cooking", 0},
		{"door_open", 0},
	} {
		if got := testutil.ToFloat64(m.panelState.WithLabelValues(tt.state)); got != tt.want {
			t.Errorf("panel_state{%s}: got %v, want %v", tt.state, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("ready", "setting_power")); got != 1 {
		t.Errorf("transition ready->setting_power: got %v, want 1", got)
	}
}

func TestIgnoredEvents(t *testing.T) {
	m := New()
	m.Ignored(panel.StateCooking, panel.EventPowerPressed)
	m.Ignored(panel.StateDoorOpen, panel.EventPowerPressed)

	if got := testutil.ToFloat64(m.ignoredEvents.WithLabelValues("power_pressed")); got != 2 {
		t.Errorf("panel_ignored_events_total{power_pressed}: got %v, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SessionStarted(cook.Session{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"microwave_sessions_started_total 1",
		`microwave_panel_state{state="ready"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
