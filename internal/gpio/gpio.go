// Package gpio provides the motor's hardware collaborators: the quadrature
// encoder edge source and the H-bridge speed actuator.
// The real implementations use the Linux GPIO character device and sysfs PWM.
// The fake implementations allow testing without hardware.
package gpio

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by the real constructors on non-Linux platforms.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Edge is one rising edge on encoder channel A.
type Edge struct {
	// Time is the kernel's monotonic timestamp of the edge.
	Time time.Duration
	// Partner is true when channel B read high at the edge.
	Partner bool
}

// EdgeSource delivers encoder edges to a handler.
// The handler runs on the source's own goroutine and must not block.
type EdgeSource interface {
	// Start begins delivering edges. It may be called once.
	Start(handler func(Edge)) error

	// Levels returns the current raw levels of channels A and B.
	Levels() (a, b bool, err error)

	// Close stops delivery and releases resources.
	Close() error
}

// Default pin assignment (BCM offsets on gpiochip0).
const (
	DefaultChip       = "gpiochip0"
	DefaultPinEncA    = 10
	DefaultPinEncB    = 11
	DefaultPinDir1    = 14
	DefaultPinDir2    = 15
	DefaultPWMChip    = 0
	DefaultPWMChannel = 0
)

// Pins is the wiring of the encoder and H-bridge.
type Pins struct {
	Chip       string
	EncoderA   int
	EncoderB   int
	Dir1       int
	Dir2       int
	PWMChip    int
	PWMChannel int
	// PWMPeriodNs is the PWM period in nanoseconds.
	PWMPeriodNs int64
}
