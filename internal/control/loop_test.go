package control

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingActuator struct {
	commands []float64
	err      error
}

func (a *recordingActuator) SetCommand(cmd float64) error {
	if a.err != nil {
		return a.err
	}
	a.commands = append(a.commands, cmd)
	return nil
}

func TestLoop_OneRevolutionPerSecond(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldPeriod = time.Minute
	cfg.SetpointHigh = 80
	enc := NewEncoderState(cfg.MinEventGap)
	act := &recordingActuator{}
	loop := NewLoop(cfg, enc, act, epoch)

	// 150 evenly spaced forward edges over one second, starting one second
	// after the monotonic zero, interleaved with 1ms ticks.
	const steps = 150
	edgeGap := time.Second / steps
	base := time.Second
	next := 1

	var s Sample
	for ms := 1; ms <= 1010; ms++ {
		elapsed := time.Duration(ms) * time.Millisecond
		for next <= steps && time.Duration(next)*edgeGap <= elapsed {
			enc.Record(Edge{Time: base + time.Duration(next)*edgeGap})
			next++
		}
		var err error
		s, err = loop.Step(epoch.Add(elapsed))
		require.NoError(t, err)
	}

	assert.Equal(t, int64(steps), s.Steps)
	assert.InDelta(t, 60.0, s.Speed, 0.01)
	assert.False(t, s.Stalled)
	assert.Equal(t, 80.0, s.Setpoint)
	assert.Greater(t, s.Command, 0.0)
	assert.Less(t, s.Command, 1.0)
	assert.Equal(t, s.Command, act.commands[len(act.commands)-1])
}

func TestLoop_StoppedShaftCommandsFromZeroSpeed(t *testing.T) {
	cfg := DefaultConfig()
	enc := NewEncoderState(cfg.MinEventGap)
	act := &recordingActuator{}
	loop := NewLoop(cfg, enc, act, epoch)

	for i := 1; i <= 5; i++ {
		enc.Record(Edge{Time: time.Duration(i) * 5 * time.Millisecond})
	}

	var s Sample
	for ms := 1; ms <= 200; ms++ {
		s, _ = loop.Step(epoch.Add(time.Duration(ms) * time.Millisecond))
	}

	assert.True(t, s.Stalled)
	assert.Equal(t, 0.0, s.Speed)
	assert.Equal(t, 1.0, s.Command)
}

func TestLoop_ActuatorErrorReturnedWithSample(t *testing.T) {
	cfg := DefaultConfig()
	act := &recordingActuator{err: errors.New("pwm write failed")}
	loop := NewLoop(cfg, NewEncoderState(cfg.MinEventGap), act, epoch)

	s, err := loop.Step(epoch.Add(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, act.err)
	assert.Equal(t, cfg.SetpointHigh, s.Setpoint)
}

func TestLoop_RepeatedTimestampDoesNotBlowUp(t *testing.T) {
	cfg := DefaultConfig()
	act := &recordingActuator{}
	loop := NewLoop(cfg, NewEncoderState(cfg.MinEventGap), act, epoch)

	now := epoch.Add(time.Millisecond)
	loop.Step(now)
	s, err := loop.Step(now)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.Command, -1.0)
	assert.LessOrEqual(t, s.Command, 1.0)
}

func TestLoop_Stop(t *testing.T) {
	cfg := DefaultConfig()
	act := &recordingActuator{}
	loop := NewLoop(cfg, NewEncoderState(cfg.MinEventGap), act, epoch)
	loop.Step(epoch.Add(time.Millisecond))

	require.NoError(t, loop.Stop())
	assert.Equal(t, 0.0, act.commands[len(act.commands)-1])
}

func TestLoop_EmittedCommandRespectsDeadband(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		p := NewPID(cfg)
		setpoint := rng.Float64()*200 - 100
		measured := rng.Float64()*200 - 100
		dt := rng.Float64() * 0.01

		out := p.Step(setpoint, measured, dt)

		assert.True(t, out == 0 || (out >= cfg.Deadband || out <= -cfg.Deadband),
			"command %v inside deadband", out)
		assert.LessOrEqual(t, out, 1.0)
		assert.GreaterOrEqual(t, out, -1.0)
	}
}

func TestReporter_Cadence(t *testing.T) {
	r := NewReporter(50 * time.Millisecond)

	due := 0
	for ms := 0; ms < 1000; ms++ {
		if r.Due(epoch.Add(time.Duration(ms) * time.Millisecond)) {
			due++
		}
	}
	assert.Equal(t, 20, due)
}

func TestFormatSample(t *testing.T) {
	s := Sample{Setpoint: 80, Speed: 59.984, Elapsed: 12345 * time.Millisecond, Command: 0.95}

	assert.Equal(t, "setpoint=80.00 speed=59.98 t=12.345 cmd=0.950", FormatSample(s))
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 360.0, cfg.StepsToDegrees(150), 1e-9)
	assert.InDelta(t, 60.0, cfg.StepsPerSecondToRPM(150), 1e-9)
}
