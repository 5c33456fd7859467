package control

import "time"

// Estimator converts encoder state into a signed speed and runs the stall
// watchdog.
type Estimator struct {
	enc           *EncoderState
	stepsPerRev   float64
	unitsPerRev   float64
	stallWindow   time.Duration
	lastCheck     time.Time
	lastSteps     int64
	stalledLatest bool
}

// NewEstimator creates an estimator whose first watchdog window starts at start.
func NewEstimator(enc *EncoderState, cfg Config, start time.Time) *Estimator {
	return &Estimator{
		enc:         enc,
		stepsPerRev: cfg.StepsPerRevolution,
		unitsPerRev: cfg.UnitsPerRevolution,
		stallWindow: cfg.StallWindow,
		lastCheck:   start,
	}
}

// Estimate returns the current speed. Every stall window it compares the
// step count with the previous check; no movement clears the interval and
// forces the reading to 0.
func (s *Estimator) Estimate(now time.Time) Reading {
	checked := false
	if now.Sub(s.lastCheck) >= s.stallWindow {
		s.lastCheck = now
		s.stalledLatest = s.enc.ClearIntervalIfSteps(s.lastSteps)
		checked = true
	}

	snap := s.enc.Snapshot()
	if checked {
		s.lastSteps = snap.Steps
	}

	return Reading{
		Speed:   s.speed(snap),
		Stalled: s.stalledLatest && snap.Interval == 0,
		Encoder: snap,
	}
}

func (s *Estimator) speed(snap EncoderSnapshot) float64 {
	if snap.Interval <= 0 {
		return 0
	}
	v := s.unitsPerRev / (snap.Interval.Seconds() * s.stepsPerRev)
	return float64(snap.Direction) * v
}
