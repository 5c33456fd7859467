package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Running       bool         `json:"running"`
	Control       ControlJSON  `json:"control"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ControlJSON is the latest control sample.
type ControlJSON struct {
	Setpoint      float64 `json:"setpoint"`
	Speed         float64 `json:"speed"`
	Command       float64 `json:"command"`
	Integral      float64 `json:"integral"`
	Steps         int64   `json:"steps"`
	Direction     string  `json:"direction"`
	Stalled       bool    `json:"stalled"`
	Phase         string  `json:"phase"`
	AcceptedEdges uint64  `json:"accepted_edges"`
	RejectedEdges uint64  `json:"rejected_edges"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
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
	Kp                 float64 `json:"kp"`
	Ki                 float64 `json:"ki"`
	Kd                 float64 `json:"kd"`
	SetpointHigh       float64 `json:"setpoint_high"`
	SetpointLow        float64 `json:"setpoint_low"`
	StepsPerRevolution float64 `json:"steps_per_revolution"`
	HoldMs             int64   `json:"hold_ms"`
	TickMs             int64   `json:"tick_ms"`
	ReportMs           int64   `json:"report_ms"`
	TelemetryMs        int64   `json:"telemetry_ms"`
	HeartbeatMs        int64   `json:"heartbeat_ms"`
	Broker             string  `json:"broker"`
	HTTPAddr           string  `json:"http_addr"`
	DryRun             bool    `json:"dry_run,omitempty"`
}

func round(v, scale float64) float64 {
	return math.Round(v*scale) / scale
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.Sample
	phase := string(s.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	return StatusInner{
		Running: snap.Running(),
		Control: ControlJSON{
			Setpoint:      s.Setpoint,
			Speed:         round(s.Speed, 100),
			Command:       round(s.Command, 1000),
			Integral:      round(s.Integral, 1000),
			Steps:         s.Steps,
			Direction:     s.Direction.String(),
			Stalled:       s.Stalled,
			Phase:         phase,
			AcceptedEdges: s.Accepted,
			RejectedEdges: s.Rejected,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Kp:                 snap.Config.Kp,
			Ki:                 snap.Config.Ki,
			Kd:                 snap.Config.Kd,
			SetpointHigh:       snap.Config.SetpointHigh,
			SetpointLow:        snap.Config.SetpointLow,
			StepsPerRevolution: snap.Config.StepsPerRevolution,
			HoldMs:             snap.Config.HoldMs,
			TickMs:             snap.Config.TickMs,
			ReportMs:           snap.Config.ReportMs,
			TelemetryMs:        snap.Config.TelemetryMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
			DryRun:             snap.Config.DryRun,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
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
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
