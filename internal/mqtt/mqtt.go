// Package mqtt publishes controller telemetry and lifecycle events, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/motorctl/internal/control"
)

// DefaultTopicPrefix is the topic root when none is configured.
const DefaultTopicPrefix = "motor/speed"

// TelemetryTopic is the topic for periodic control samples.
func TelemetryTopic(prefix string) string {
	return prefix + "/telemetry"
}

// SystemTopic is the topic for lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes controller output to MQTT.
type Publisher interface {
	// Publish sends one telemetry sample. Errors must not stop the loop.
	Publish(sample control.Sample) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Lifecycle event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventOffline   = "OFFLINE"
)

// timestampFormat keeps milliseconds; telemetry is sub-second.
const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Payload is the telemetry message envelope.
type Payload struct {
	Telemetry TelemetryPayload `json:"telemetry"`
}

// TelemetryPayload is one control sample.
type TelemetryPayload struct {
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_s"`
	Setpoint       float64 `json:"setpoint"`
	Speed          float64 `json:"speed"`
	Command        float64 `json:"command"`
	Steps          int64   `json:"steps"`
	Direction      string  `json:"direction"`
	Stalled        bool    `json:"stalled"`
	Phase          string  `json:"phase"`
}

// FormatPayload creates the JSON payload for a telemetry sample.
func FormatPayload(s control.Sample) ([]byte, error) {
	payload := Payload{
		Telemetry: TelemetryPayload{
			Timestamp:      s.Time.UTC().Format(timestampFormat),
			ElapsedSeconds: math.Round(s.Elapsed.Seconds()*1000) / 1000,
			Setpoint:       s.Setpoint,
			Speed:          round(s.Speed, 100),
			Command:        round(s.Command, 1000),
			Steps:          s.Steps,
			Direction:      s.Direction.String(),
			Stalled:        s.Stalled,
			Phase:          string(s.Phase),
		},
	}
	return json.Marshal(payload)
}

func round(v, scale float64) float64 {
	return math.Round(v*scale) / scale
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (OFFLINE will) that don't carry a full status snapshot.
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
