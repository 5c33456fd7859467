//go:build !linux

package gpio

// RealEncoder is not available on non-Linux platforms.
type RealEncoder struct{}

// NewRealEncoder returns ErrUnsupported on non-Linux platforms.
func NewRealEncoder(pins Pins) (*RealEncoder, error) {
	return nil, ErrUnsupported
}

// Start is not implemented on non-Linux platforms.
func (r *RealEncoder) Start(handler func(Edge)) error {
	return ErrUnsupported
}

// Levels is not implemented on non-Linux platforms.
func (r *RealEncoder) Levels() (bool, bool, error) {
	return false, false, ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealEncoder) Close() error {
	return nil
}

// RealHBridge is not available on non-Linux platforms.
type RealHBridge struct{}

// NewRealHBridge returns ErrUnsupported on non-Linux platforms.
func NewRealHBridge(pins Pins) (*RealHBridge, error) {
	return nil, ErrUnsupported
}

// SetCommand is not implemented on non-Linux platforms.
func (h *RealHBridge) SetCommand(cmd float64) error {
	return ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (h *RealHBridge) Close() error {
	return nil
}
