package control

import "time"

// Scheduler produces a square-wave reference: SetpointHigh for one hold
// period, then SetpointLow for the next, alternating forever.
type Scheduler struct {
	high, low  float64
	hold       time.Duration
	phase      Phase
	lastSwitch time.Time
}

// NewScheduler starts in the high phase at start.
func NewScheduler(cfg Config, start time.Time) *Scheduler {
	return &Scheduler{
		high:       cfg.SetpointHigh,
		low:        cfg.SetpointLow,
		hold:       cfg.HoldPeriod,
		phase:      PhaseHigh,
		lastSwitch: start,
	}
}

// Target returns the reference at now, switching phase once the hold
// period has elapsed since the last switch.
func (s *Scheduler) Target(now time.Time) float64 {
	if s.hold > 0 && now.Sub(s.lastSwitch) >= s.hold {
		s.lastSwitch = now
		if s.phase == PhaseHigh {
			s.phase = PhaseLow
		} else {
			s.phase = PhaseHigh
		}
	}
	if s.phase == PhaseHigh {
		return s.high
	}
	return s.low
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase {
	return s.phase
}
