// Package sim provides a simulated DC motor with a quadrature encoder so the
// control loop can run without hardware. The motor is a first-order plant
// integrated with forward Euler; it is both the loop's actuator and its
// encoder edge source.
package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sweeney/motorctl/internal/gpio"
)

// PlantConfig describes the simulated motor.
type PlantConfig struct {
	// MaxSpeed is the no-load speed at full command, in the loop's units (RPM).
	MaxSpeed float64
	// TimeConstant is the mechanical time constant.
	TimeConstant time.Duration
	// Friction is the command magnitude below which the shaft does not
	// break away.
	Friction float64
	// StepsPerRevolution must match the encoder resolution the loop uses.
	StepsPerRevolution float64
	// UnitsPerRevolution converts revolutions per second into speed units.
	UnitsPerRevolution float64
}

// DefaultPlantConfig is a small geared motor: 120 RPM no-load.
func DefaultPlantConfig() PlantConfig {
	return PlantConfig{
		MaxSpeed:           120,
		TimeConstant:       80 * time.Millisecond,
		Friction:           0.05,
		StepsPerRevolution: 150,
		UnitsPerRevolution: 60,
	}
}

// Motor is the simulated plant. SetCommand and Advance may be called from
// different goroutines.
type Motor struct {
	cfg PlantConfig

	mu       sync.Mutex
	cmd      float64
	speed    float64
	position float64 // in encoder steps
	clock    time.Duration
	handler  func(gpio.Edge)
	closed   bool
}

// NewMotor creates a stationary motor. Its monotonic clock starts at start,
// which should be well past zero so the first edge gap is realistic.
func NewMotor(cfg PlantConfig, start time.Duration) *Motor {
	return &Motor{cfg: cfg, clock: start}
}

// SetCommand implements control.Actuator.
func (m *Motor) SetCommand(cmd float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("sim: motor closed")
	}
	m.cmd = math.Max(-1, math.Min(1, cmd))
	return nil
}

// Start implements gpio.EdgeSource.
func (m *Motor) Start(handler func(gpio.Edge)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler != nil {
		return errors.New("sim: encoder already started")
	}
	m.handler = handler
	return nil
}

// Levels implements gpio.EdgeSource. Channel A is high for the first half
// of each step; B leads A when reversing.
func (m *Motor) Levels() (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	frac := m.position - math.Floor(m.position)
	a := frac < 0.5
	b := frac >= 0.25 && frac < 0.75
	return a, b, nil
}

// Close stops edge delivery.
func (m *Motor) Close() error {
	m.mu.Lock()
	m.closed = true
	m.handler = nil
	m.mu.Unlock()
	return nil
}

// Speed returns the true shaft speed.
func (m *Motor) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// Position returns the shaft position in encoder steps.
func (m *Motor) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Advance integrates the plant over dt and delivers one edge for every
// whole step the shaft crosses, timestamped by linear interpolation.
// Edges are delivered after the lock is released.
func (m *Motor) Advance(dt time.Duration) {
	m.mu.Lock()
	edges := m.advance(dt)
	h := m.handler
	m.mu.Unlock()

	if h == nil {
		return
	}
	for _, e := range edges {
		h(e)
	}
}

func (m *Motor) advance(dt time.Duration) []gpio.Edge {
	secs := dt.Seconds()

	drive := m.cmd
	if math.Abs(drive) < m.cfg.Friction {
		drive = 0
	}
	target := drive * m.cfg.MaxSpeed
	tau := m.cfg.TimeConstant.Seconds()
	if tau <= 0 {
		m.speed = target
	} else {
		m.speed += secs / tau * (target - m.speed)
	}

	stepsPerSec := m.speed / m.cfg.UnitsPerRevolution * m.cfg.StepsPerRevolution
	from := m.position
	to := from + stepsPerSec*secs
	t0 := m.clock

	m.position = to
	m.clock += dt

	var edges []gpio.Edge
	switch {
	case to > from:
		for k := math.Floor(from) + 1; k <= to; k++ {
			edges = append(edges, gpio.Edge{Time: t0 + interp(dt, from, to, k), Partner: false})
		}
	case to < from:
		for k := math.Ceil(from) - 1; k >= to; k-- {
			edges = append(edges, gpio.Edge{Time: t0 + interp(dt, from, to, k), Partner: true})
		}
	}
	return edges
}

func interp(dt time.Duration, from, to, k float64) time.Duration {
	return time.Duration(float64(dt) * (k - from) / (to - from))
}

// RunRealtime advances the plant against the wall clock every interval
// until ctx is done. Edges are delivered from this goroutine, concurrently
// with the control loop, the way hardware edge events are.
func (m *Motor) RunRealtime(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Advance(now.Sub(last))
			last = now
		}
	}
}
