// Package control contains the closed-loop speed regulator: encoder state,
// speed estimation, setpoint scheduling and the PID law.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time / time.Duration parameters.
package control

import "time"

// Direction is the rotation direction reported by the most recent encoder edge.
type Direction int

const (
	Forward Direction = 1
	Reverse Direction = -1
)

func (d Direction) String() string {
	if d == Reverse {
		return "REVERSE"
	}
	return "FORWARD"
}

// Phase is the current half of the setpoint square wave.
type Phase string

const (
	PhaseHigh Phase = "HIGH"
	PhaseLow  Phase = "LOW"
)

// Edge is a single qualifying encoder edge.
type Edge struct {
	// Time is a monotonic timestamp of the edge.
	Time time.Duration
	// Partner is the level of the second quadrature channel at the edge.
	Partner bool
}

// EncoderSnapshot is a consistent copy of the shared encoder record.
type EncoderSnapshot struct {
	Steps     int64
	Interval  time.Duration
	Direction Direction
	LastEvent time.Duration
	Accepted  uint64
	Rejected  uint64
}

// Reading is the output of one estimator pass.
type Reading struct {
	Speed   float64
	Stalled bool
	Encoder EncoderSnapshot
}

// Tick is computed once per loop iteration.
type Tick struct {
	Now time.Time
	Dt  float64 // seconds
}

// Sample is the diagnostic record produced by every control step.
type Sample struct {
	Time      time.Time
	Elapsed   time.Duration
	Setpoint  float64
	Speed     float64
	Command   float64
	Integral  float64
	Steps     int64
	Direction Direction
	Stalled   bool
	Phase     Phase
	Accepted  uint64
	Rejected  uint64
}

// Actuator accepts a signed normalized command in [-1, 1]. The sign selects
// the rotation direction; exactly 0 brakes to neutral.
type Actuator interface {
	SetCommand(cmd float64) error
}
