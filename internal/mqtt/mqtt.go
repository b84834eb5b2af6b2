// Package mqtt publishes oven activity to an MQTT broker, with an abstraction
// for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicOutput carries one message per actuator record.
const TopicOutput = "microwave/oven/output"

// TopicState carries the retained oven status snapshot.
const TopicState = "microwave/oven/state"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "microwave/oven/system"

// Publisher publishes oven activity to MQTT.
type Publisher interface {
	// PublishRecord sends one actuator record.
	// Returns error if publishing fails (should not crash the process).
	PublishRecord(rec Record) error

	// PublishState sends a pre-formatted status snapshot, retained.
	PublishState(payload []byte) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Record is one line emitted by the display, light or power tube.
type Record struct {
	Timestamp time.Time
	Line      string
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// RecordPayload represents the MQTT message payload for an actuator record.
type RecordPayload struct {
	Output RecordPayloadInner `json:"output"`
}

// RecordPayloadInner contains the record details.
type RecordPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Record    string `json:"record"`
}

// FormatRecordPayload creates the JSON payload for an actuator record.
func FormatRecordPayload(rec Record) ([]byte, error) {
	return json.Marshal(RecordPayload{
		Output: RecordPayloadInner{
			Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
			Record:    rec.Line,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
