package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/motorctl/internal/control"
	"github.com/sweeney/motorctl/internal/gpio"
)

// Epoch is the wall-clock origin of virtual-time runs.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Result is the outcome of a virtual-time run.
type Result struct {
	Samples []control.Sample
	// TrueSpeed is the plant's actual speed at each sample.
	TrueSpeed []float64
}

// Last returns the final sample.
func (r *Result) Last() control.Sample {
	if len(r.Samples) == 0 {
		return control.Sample{}
	}
	return r.Samples[len(r.Samples)-1]
}

// Run closes the loop around a simulated motor in virtual time for
// duration, one plant step and one control step per tick. Samples are kept
// at the config's report interval.
func Run(ctx context.Context, cfg control.Config, plant PlantConfig, duration time.Duration) (*Result, error) {
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("sim: tick interval must be positive, got %v", cfg.TickInterval)
	}

	motor := NewMotor(plant, time.Second)
	enc := control.NewEncoderState(cfg.MinEventGap)
	if err := motor.Start(recordInto(enc)); err != nil {
		return nil, err
	}
	defer motor.Close()

	loop := control.NewLoop(cfg, enc, motor, Epoch)
	reporter := control.NewReporter(cfg.ReportInterval)

	res := &Result{}
	for t := cfg.TickInterval; t <= duration; t += cfg.TickInterval {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		motor.Advance(cfg.TickInterval)
		now := Epoch.Add(t)
		s, err := loop.Step(now)
		if err != nil {
			return res, fmt.Errorf("sim: step at %v: %w", t, err)
		}
		if reporter.Due(now) {
			res.Samples = append(res.Samples, s)
			res.TrueSpeed = append(res.TrueSpeed, motor.Speed())
		}
	}
	return res, nil
}

// recordInto returns an edge handler that records edges into enc.
func recordInto(enc *control.EncoderState) func(gpio.Edge) {
	return func(e gpio.Edge) {
		enc.Record(control.Edge{Time: e.Time, Partner: e.Partner})
	}
}
