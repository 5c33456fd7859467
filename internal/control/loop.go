package control

import (
	"fmt"
	"time"
)

// Loop ties the estimator, scheduler and PID together and forwards the
// result to the actuator. It is driven by the caller's tick.
type Loop struct {
	cfg       Config
	encoder   *EncoderState
	estimator *Estimator
	scheduler *Scheduler
	pid       *PID
	actuator  Actuator

	startTime time.Time
	lastTick  time.Time
	ticked    bool
}

// NewLoop creates a loop whose timers start at startTime.
func NewLoop(cfg Config, enc *EncoderState, act Actuator, startTime time.Time) *Loop {
	return &Loop{
		cfg:       cfg,
		encoder:   enc,
		estimator: NewEstimator(enc, cfg, startTime),
		scheduler: NewScheduler(cfg, startTime),
		pid:       NewPID(cfg),
		actuator:  act,
		startTime: startTime,
		lastTick:  startTime,
	}
}

// Step runs one control iteration at now. An actuator error is returned
// with the sample; the loop state has already advanced.
func (l *Loop) Step(now time.Time) (Sample, error) {
	tick := l.tick(now)

	reading := l.estimator.Estimate(tick.Now)
	setpoint := l.scheduler.Target(tick.Now)
	cmd := l.pid.Step(setpoint, reading.Speed, tick.Dt)

	sample := Sample{
		Time:      tick.Now,
		Elapsed:   tick.Now.Sub(l.startTime),
		Setpoint:  setpoint,
		Speed:     reading.Speed,
		Command:   cmd,
		Integral:  l.pid.Integral(),
		Steps:     reading.Encoder.Steps,
		Direction: reading.Encoder.Direction,
		Stalled:   reading.Stalled,
		Phase:     l.scheduler.Phase(),
		Accepted:  reading.Encoder.Accepted,
		Rejected:  reading.Encoder.Rejected,
	}

	if err := l.actuator.SetCommand(cmd); err != nil {
		return sample, fmt.Errorf("set command %.3f: %w", cmd, err)
	}
	return sample, nil
}

// Stop commands the actuator to neutral.
func (l *Loop) Stop() error {
	if err := l.actuator.SetCommand(0); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

// Reset clears the controller state; encoder counters are kept.
func (l *Loop) Reset() {
	l.pid.Reset()
}

// Encoder returns the shared encoder record the edge handler writes to.
func (l *Loop) Encoder() *EncoderState {
	return l.encoder
}

func (l *Loop) tick(now time.Time) Tick {
	var dt float64
	if l.ticked {
		dt = now.Sub(l.lastTick).Seconds()
	} else {
		dt = l.cfg.TickInterval.Seconds()
		l.ticked = true
	}
	l.lastTick = now
	return Tick{Now: now, Dt: dt}
}

// Reporter throttles diagnostic output to a fixed cadence independent of
// the control tick.
type Reporter struct {
	interval time.Duration
	last     time.Time
	started  bool
}

// NewReporter creates a reporter that is due at most once per interval.
// The first call to Due is always true.
func NewReporter(interval time.Duration) *Reporter {
	return &Reporter{interval: interval}
}

// Due reports whether a report should be emitted at now, and if so marks it.
func (r *Reporter) Due(now time.Time) bool {
	if r.started && now.Sub(r.last) < r.interval {
		return false
	}
	r.started = true
	r.last = now
	return true
}

// FormatSample renders the human-readable diagnostic line.
func FormatSample(s Sample) string {
	return fmt.Sprintf("setpoint=%.2f speed=%.2f t=%.3f cmd=%.3f",
		s.Setpoint, s.Speed, s.Elapsed.Seconds(), s.Command)
}
