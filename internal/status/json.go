package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Oven          OvenJSON     `json:"oven"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"session_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// OvenJSON is the JSON representation of the oven state.
type OvenJSON struct {
	State     string       `json:"state"`
	Power     int          `json:"power"`
	Seconds   int          `json:"seconds"`
	Display   string       `json:"display"`
	LightOn   bool         `json:"light_on"`
	TubeOn    bool         `json:"tube_on"`
	TubePower int          `json:"tube_power"`
	Session   *SessionJSON `json:"session,omitempty"`
}

// SessionJSON is the JSON representation of the active cooking session.
type SessionJSON struct {
	ID        string `json:"id"`
	Power     int    `json:"power"`
	Duration  int    `json:"duration_s"`
	Remaining int    `json:"remaining_s"`
	StartedAt string `json:"started_at"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of session counts.
type CountsJSON struct {
	Started   int `json:"started"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Ignored   int `json:"ignored_events"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs     int64  `json:"tick_ms"`
	MaxPower   int    `json:"max_power"`
	PowerStep  int    `json:"power_step"`
	TimeStep   int    `json:"time_step"`
	DoorPolicy string `json:"door_policy"`
	Broker     string `json:"broker"`
	HTTPPort   string `json:"http_port"`
	GPIO       bool   `json:"gpio"`
}

func buildOven(snap Snapshot) OvenJSON {
	o := snap.Oven
	state := string(o.Panel)
	if state == "" {
		state = "UNKNOWN"
	}
	out := OvenJSON{
		State:     state,
		Power:     o.Selection.Power,
		Seconds:   o.Selection.Seconds,
		Display:   o.Display,
		LightOn:   o.LightOn,
		TubeOn:    o.TubeOn,
		TubePower: o.TubePower,
	}
	if s := o.Session; s != nil {
		out.Session = &SessionJSON{
			ID:        s.ID,
			Power:     s.Power,
			Duration:  s.Duration,
			Remaining: s.Remaining,
			StartedAt: s.StartedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Oven:          buildOven(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Started:   snap.Counts.Started,
			Completed: snap.Counts.Completed,
			Cancelled: snap.Counts.Cancelled,
			Ignored:   snap.Counts.Ignored,
		},
		Config: ConfigJSON{
			TickMs:     snap.Config.TickMs,
			MaxPower:   snap.Config.MaxPower,
			PowerStep:  snap.Config.PowerStep,
			TimeStep:   snap.Config.TimeStep,
			DoorPolicy: snap.Config.DoorPolicy,
			Broker:     snap.Config.Broker,
			HTTPPort:   snap.Config.HTTPPort,
			GPIO:       snap.Config.GPIO,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status for an MQTT event
// (STARTUP, STATE, SHUTDOWN).
func FormatStatusEvent(snap Snapshot, event string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatOvenJSON returns the compact JSON oven state, as streamed to
// websocket clients.
func FormatOvenJSON(snap Snapshot) []byte {
	data, _ := json.Marshal(buildOven(snap))
	return data
}
