// Package metrics exposes oven activity as Prometheus metrics on a private
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/microwave/internal/cook"
	"github.com/sweeney/microwave/internal/panel"
)

const namespace = "microwave"

var panelStates = []panel.State{
	panel.StateReady,
	panel.StateSettingPower,
	panel.StateSettingTime,
	panel.StateCooking,
	panel.StateDoorOpen,
}

// Metrics observes the cook controller and the panel.
type Metrics struct {
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	sessionSeconds   *prometheus.HistogramVec
	timerTicks       prometheus.Counter
	transitions      *prometheus.CounterVec
	ignoredEvents    *prometheus.CounterVec
	panelState       *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry. The
// panel starts in ready.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of cooking sessions started",
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Total number of cooking sessions finished, by outcome",
		}, []string{"outcome"}),
		sessionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_cooked_seconds",
			Help:      "Seconds the power tube ran per session",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		}, []string{"outcome"}),
		timerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_ticks_total",
			Help:      "Total number of countdown ticks applied to sessions",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panel_transitions_total",
			Help:      "Total number of panel state changes",
		}, []string{"from", "to"}),
		ignoredEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panel_ignored_events_total",
			Help:      "Total number of events the panel ignored in its current state",
		}, []string{"event"}),
		panelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panel_state",
			Help:      "Current panel state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),
	}

	m.registry.MustRegister(
		m.sessionsStarted,
		m.sessionsFinished,
		m.sessionSeconds,
		m.timerTicks,
		m.transitions,
		m.ignoredEvents,
		m.panelState,
	)
	m.setState(panel.StateReady)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionStarted implements cook.Observer.
func (m *Metrics) SessionStarted(cook.Session) {
	m.sessionsStarted.Inc()
}

// SessionTicked implements cook.Observer.
func (m *Metrics) SessionTicked(cook.Session) {
	m.timerTicks.Inc()
}

// SessionFinished implements cook.Observer.
func (m *Metrics) SessionFinished(s cook.Session, outcome cook.Outcome) {
	m.sessionsFinished.WithLabelValues(string(outcome)).Inc()
	cooked := time.Duration(s.Duration-s.Remaining) * time.Second
	m.sessionSeconds.WithLabelValues(string(outcome)).Observe(cooked.Seconds())
}

// Transitioned implements panel.Observer.
func (m *Metrics) Transitioned(from, to panel.State, _ panel.Event) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
	m.setState(to)
}

// Ignored implements panel.Observer.
func (m *Metrics) Ignored(_ panel.State, ev panel.Event) {
	m.ignoredEvents.WithLabelValues(string(ev)).Inc()
}

func (m *Metrics) setState(current panel.State) {
	for _, s := range panelStates {
		v := 0.0
		if s == current {
			v = 1
		}
		m.panelState.WithLabelValues(string(s)).Set(v)
	}
}
