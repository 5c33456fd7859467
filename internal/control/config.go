package control

import "time"

// Firmware defaults for a 150-step encoder on a small geared DC motor.
const (
	DefaultKp                 = 0.02
	DefaultKi                 = 0.055
	DefaultKd                 = 4.0
	DefaultStepsPerRevolution = 150
	DefaultUnitsPerRevolution = 60.0 // per-minute, so speeds read as RPM
	DefaultMinEventGap        = 2 * time.Millisecond
	DefaultStallWindow        = 50 * time.Millisecond
	DefaultSetpointHigh       = 80.0
	DefaultSetpointLow        = 0.0
	DefaultHoldPeriod         = 5 * time.Second
	DefaultIntegralClamp      = 10.0
	DefaultDeadband           = 0.1
	DefaultTickInterval       = time.Millisecond
	DefaultReportInterval     = 50 * time.Millisecond
)

// MinDt is the floor applied to a non-positive tick duration before the
// derivative term divides by it.
const MinDt = 1e-6

// Config is the complete parameter set of the regulator.
type Config struct {
	Kp, Ki, Kd float64

	StepsPerRevolution float64
	UnitsPerRevolution float64

	MinEventGap time.Duration
	StallWindow time.Duration

	SetpointHigh float64
	SetpointLow  float64
	// HoldPeriod of 0 holds SetpointHigh forever.
	HoldPeriod time.Duration

	IntegralClamp float64
	Deadband      float64

	TickInterval   time.Duration
	ReportInterval time.Duration
}

// DefaultConfig returns the firmware's constants.
func DefaultConfig() Config {
	return Config{
		Kp:                 DefaultKp,
		Ki:                 DefaultKi,
		Kd:                 DefaultKd,
		StepsPerRevolution: DefaultStepsPerRevolution,
		UnitsPerRevolution: DefaultUnitsPerRevolution,
		MinEventGap:        DefaultMinEventGap,
		StallWindow:        DefaultStallWindow,
		SetpointHigh:       DefaultSetpointHigh,
		SetpointLow:        DefaultSetpointLow,
		HoldPeriod:         DefaultHoldPeriod,
		IntegralClamp:      DefaultIntegralClamp,
		Deadband:           DefaultDeadband,
		TickInterval:       DefaultTickInterval,
		ReportInterval:     DefaultReportInterval,
	}
}

// StepsToDegrees converts a step count to shaft degrees.
func (c Config) StepsToDegrees(steps int64) float64 {
	return float64(steps) * 360.0 / c.StepsPerRevolution
}

// StepsPerSecondToRPM converts an edge rate to revolutions per minute.
func (c Config) StepsPerSecondToRPM(rate float64) float64 {
	return rate * 60.0 / c.StepsPerRevolution
}
