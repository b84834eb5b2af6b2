// Package status provides a thread-safe status tracker for the microwave daemon.
// It is read by the HTTP handlers, the websocket stream and the MQTT state topic.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/microwave/internal/cook"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/panel"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs     int64
	MaxPower   int
	PowerStep  int
	TimeStep   int
	DoorPolicy string
	Broker     string
	HTTPPort   string
	GPIO       bool
}

// Counts tallies oven activity since start.
type Counts struct {
	Started   int
	Completed int
	Cancelled int
	Ignored   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Oven          oven.State
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. It observes the
// cook controller and the panel for its counters.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Oven:      oven.State{Panel: panel.StateReady},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest oven state. It is an oven.Listener.
func (t *Tracker) Update(s oven.State) {
	if s.Session != nil {
		sess := *s.Session
		s.Session = &sess
	}
	t.mu.Lock()
	t.snap.Oven = s
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SessionStarted counts a started session.
func (t *Tracker) SessionStarted(cook.Session) {
	t.mu.Lock()
	t.snap.Counts.Started++
	t.mu.Unlock()
}

// SessionTicked is a no-op; remaining time arrives through Update.
func (t *Tracker) SessionTicked(cook.Session) {}

// SessionFinished counts a finished session by outcome.
func (t *Tracker) SessionFinished(_ cook.Session, outcome cook.Outcome) {
	t.mu.Lock()
	switch outcome {
	case cook.OutcomeCompleted:
		t.snap.Counts.Completed++
	case cook.OutcomeCancelled:
		t.snap.Counts.Cancelled++
	}
	t.mu.Unlock()
}

// Transitioned is a no-op; the state arrives through Update.
func (t *Tracker) Transitioned(_, _ panel.State, _ panel.Event) {}

// Ignored counts an event the panel had no edge for.
func (t *Tracker) Ignored(panel.State, panel.Event) {
	t.mu.Lock()
	t.snap.Counts.Ignored++
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Oven.Session != nil {
		sess := *s.Oven.Session
		s.Oven.Session = &sess
	}
	s.Now = time.Now()
	return s
}
