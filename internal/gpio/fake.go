package gpio

import (
	"errors"
	"sync"
)

// FakeEncoder is a test double that delivers scripted edges on demand.
type FakeEncoder struct {
	mu      sync.Mutex
	handler func(Edge)

	// Edges contains every edge passed to Emit, delivered or not.
	Edges []Edge

	// A and B are the levels returned by Levels.
	A, B bool

	// LevelsError, if set, will be returned by Levels().
	LevelsError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeEncoder creates an idle FakeEncoder.
func NewFakeEncoder() *FakeEncoder {
	return &FakeEncoder{}
}

// Start registers the handler.
func (f *FakeEncoder) Start(handler func(Edge)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler != nil {
		return errors.New("encoder already started")
	}
	f.handler = handler
	return nil
}

// Emit delivers edge to the handler synchronously. Edges emitted before
// Start or after Close are recorded but dropped. Returns whether it was delivered.
func (f *FakeEncoder) Emit(edge Edge) bool {
	f.mu.Lock()
	f.Edges = append(f.Edges, edge)
	h := f.handler
	closed := f.Closed
	f.mu.Unlock()

	if h == nil || closed {
		return false
	}
	h(edge)
	return true
}

// Levels returns the scripted channel levels.
func (f *FakeEncoder) Levels() (bool, bool, error) {
	if f.LevelsError != nil {
		return false, false, f.LevelsError
	}
	return f.A, f.B, nil
}

// Close marks the encoder as closed.
func (f *FakeEncoder) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// FakeActuator records every command it is given.
type FakeActuator struct {
	mu sync.Mutex

	// Commands contains all commands, clamped to [-1, 1].
	Commands []float64

	// SetError, if set, will be returned by SetCommand.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeActuator creates a FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// SetCommand records cmd.
func (f *FakeActuator) SetCommand(cmd float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Commands = append(f.Commands, clampUnit(cmd))
	return nil
}

// Last returns the most recent command, or 0 if none.
func (f *FakeActuator) Last() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Commands) == 0 {
		return 0
	}
	return f.Commands[len(f.Commands)-1]
}

// Direction returns the DIR1/DIR2 levels the last command would drive.
func (f *FakeActuator) Direction() (int, int) {
	return directionLevels(f.Last())
}

// Close marks the actuator as closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset clears recorded commands and errors.
func (f *FakeActuator) Reset() {
	f.mu.Lock()
	f.Commands = nil
	f.SetError = nil
	f.Closed = false
	f.mu.Unlock()
}
