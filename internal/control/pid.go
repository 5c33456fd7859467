package control

import "math"

// PID is a proportional-integral-derivative law with a clamped integral,
// an output clamped to [-1, 1] and a deadband around zero.
type PID struct {
	Kp, Ki, Kd    float64
	IntegralClamp float64
	Deadband      float64

	integral float64
	prevErr  float64
}

// NewPID creates a controller from cfg's gains and limits.
func NewPID(cfg Config) *PID {
	return &PID{
		Kp:            cfg.Kp,
		Ki:            cfg.Ki,
		Kd:            cfg.Kd,
		IntegralClamp: cfg.IntegralClamp,
		Deadband:      cfg.Deadband,
	}
}

// Step returns the actuation command for one tick of dt seconds.
// A non-positive dt is floored to MinDt.
func (p *PID) Step(setpoint, measured, dt float64) float64 {
	if dt <= 0 {
		dt = MinDt
	}

	err := setpoint - measured

	p.integral = clamp(p.integral+err*dt, -p.IntegralClamp, p.IntegralClamp)

	derivative := (err - p.prevErr) / dt
	p.prevErr = err

	out := p.Kp*err + p.Ki*p.integral + p.Kd*derivative
	out = clamp(out, -1, 1)

	if math.Abs(out) < p.Deadband {
		return 0
	}
	return out
}

// Reset clears integral and derivative state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
}

// Integral returns the accumulated integral term.
func (p *PID) Integral() float64 {
	return p.integral
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
