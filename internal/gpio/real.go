//go:build linux

package gpio

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"
)

// RealEncoder reads a quadrature encoder through the Linux GPIO character
// device. Channel A is edge-triggered; channel B is sampled inside the
// edge handler to tag the direction.
type RealEncoder struct {
	chip    *gpiocdev.Chip
	a       *gpiocdev.Line
	b       *gpiocdev.Line
	handler atomic.Pointer[func(Edge)]
}

// NewRealEncoder requests the encoder lines. Edges are dropped until Start.
func NewRealEncoder(pins Pins) (*RealEncoder, error) {
	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealEncoder{chip: chip}

	// Open-collector encoder outputs need the pull-ups.
	b, err := chip.RequestLine(pins.EncoderB, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request encoder B pin %d: %w", pins.EncoderB, err)
	}
	r.b = b

	a, err := chip.RequestLine(pins.EncoderA,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(r.onEdge))
	if err != nil {
		b.Close()
		chip.Close()
		return nil, fmt.Errorf("request encoder A pin %d: %w", pins.EncoderA, err)
	}
	r.a = a

	return r, nil
}

// Start installs the handler.
func (r *RealEncoder) Start(handler func(Edge)) error {
	if !r.handler.CompareAndSwap(nil, &handler) {
		return fmt.Errorf("encoder already started")
	}
	return nil
}

func (r *RealEncoder) onEdge(evt gpiocdev.LineEvent) {
	h := r.handler.Load()
	if h == nil {
		return
	}
	partner, err := r.b.Value()
	if err != nil {
		log.Printf("encoder: read B pin: %v", err)
		return
	}
	(*h)(Edge{Time: evt.Timestamp, Partner: partner == 1})
}

// Levels returns the raw levels of channels A and B.
func (r *RealEncoder) Levels() (bool, bool, error) {
	a, err := r.a.Value()
	if err != nil {
		return false, false, fmt.Errorf("read encoder A pin: %w", err)
	}
	b, err := r.b.Value()
	if err != nil {
		return false, false, fmt.Errorf("read encoder B pin: %w", err)
	}
	return a == 1, b == 1, nil
}

// Close releases the encoder lines.
func (r *RealEncoder) Close() error {
	var errs []error
	if r.a != nil {
		if err := r.a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder A pin: %w", err))
		}
	}
	if r.b != nil {
		if err := r.b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder B pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealHBridge drives a dual-direction-pin H-bridge with a PWM enable input.
type RealHBridge struct {
	chip *gpiocdev.Chip
	dir1 *gpiocdev.Line
	dir2 *gpiocdev.Line
	pwm  *PWM
}

// NewRealHBridge requests the direction lines low and opens the PWM channel
// at 0% duty, so the motor starts braked to neutral.
func NewRealHBridge(pins Pins) (*RealHBridge, error) {
	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	dir1, err := chip.RequestLine(pins.Dir1, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request DIR1 pin %d: %w", pins.Dir1, err)
	}

	dir2, err := chip.RequestLine(pins.Dir2, gpiocdev.AsOutput(0))
	if err != nil {
		dir1.Close()
		chip.Close()
		return nil, fmt.Errorf("request DIR2 pin %d: %w", pins.Dir2, err)
	}

	pwm, err := OpenPWM(SysfsRoot, pins.PWMChip, pins.PWMChannel, pins.PWMPeriodNs)
	if err != nil {
		dir2.Close()
		dir1.Close()
		chip.Close()
		return nil, fmt.Errorf("open pwm: %w", err)
	}

	return &RealHBridge{
		chip: chip,
		dir1: dir1,
		dir2: dir2,
		pwm:  pwm,
	}, nil
}

// SetCommand applies a signed command in [-1, 1]. Out-of-range values are
// clamped; exactly 0 drives both direction pins low.
func (h *RealHBridge) SetCommand(cmd float64) error {
	cmd = clampUnit(cmd)
	d1, d2 := directionLevels(cmd)

	// Release the pin that goes low first so both are never high together.
	if d1 == 0 {
		if err := h.dir1.SetValue(0); err != nil {
			return fmt.Errorf("set DIR1: %w", err)
		}
	}
	if d2 == 0 {
		if err := h.dir2.SetValue(0); err != nil {
			return fmt.Errorf("set DIR2: %w", err)
		}
	}
	if d1 == 1 {
		if err := h.dir1.SetValue(1); err != nil {
			return fmt.Errorf("set DIR1: %w", err)
		}
	}
	if d2 == 1 {
		if err := h.dir2.SetValue(1); err != nil {
			return fmt.Errorf("set DIR2: %w", err)
		}
	}

	if err := h.pwm.SetFraction(abs(cmd)); err != nil {
		return err
	}
	return nil
}

// Close brakes the motor, disables PWM and returns the direction pins to
// inputs with pull-down (matching Pi boot defaults) before releasing them.
func (h *RealHBridge) Close() error {
	var errs []error

	if err := h.pwm.Close(); err != nil {
		errs = append(errs, err)
	}
	for name, line := range map[string]*gpiocdev.Line{"DIR1": h.dir1, "DIR2": h.dir2} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
