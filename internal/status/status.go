// Package status provides a thread-safe status tracker for the motorctl daemon.
// It is read by the HTTP handlers and the lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/motorctl/internal/control"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing cmd-level helpers from status.
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
	Kp                 float64
	Ki                 float64
	Kd                 float64
	SetpointHigh       float64
	SetpointLow        float64
	StepsPerRevolution float64
	HoldMs             int64
	TickMs             int64
	ReportMs           int64
	TelemetryMs        int64
	HeartbeatMs        int64
	Broker             string
	HTTPAddr           string
	DryRun             bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Sample        control.Sample
	Ticks         uint64
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

// Running reports whether the loop has completed at least one step.
func (s Snapshot) Running() bool {
	return s.Ticks > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the latest control sample. Called from runLoop on every tick.
func (t *Tracker) Update(s control.Sample) {
	t.mu.Lock()
	t.snap.Sample = s
	t.snap.Ticks++
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

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
