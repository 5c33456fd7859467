package control

import (
	"sync"
	"time"
)

// EncoderState is the record shared between the edge handler and the
// control loop. Record is the only writer besides the stall watchdog's
// ClearIntervalIfSteps; Snapshot copies every field under the same lock so
// a reader never pairs a new direction with an old interval.
type EncoderState struct {
	minGap time.Duration

	mu        sync.Mutex
	steps     int64
	interval  time.Duration
	direction Direction
	lastEvent time.Duration
	accepted  uint64
	rejected  uint64
}

// NewEncoderState creates a zeroed record that drops edges closer together
// than minGap.
func NewEncoderState(minGap time.Duration) *EncoderState {
	return &EncoderState{
		minGap:    minGap,
		direction: Forward,
	}
}

// Record applies one edge. It returns false when the edge arrived within
// the minimum gap of the previous accepted edge and was dropped.
// Safe to call from the edge handler goroutine; never blocks beyond the lock.
func (e *EncoderState) Record(edge Edge) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	gap := edge.Time - e.lastEvent
	if gap < e.minGap {
		e.rejected++
		return false
	}

	e.interval = (e.interval + gap) / 2
	e.lastEvent = edge.Time
	e.accepted++

	if edge.Partner {
		e.steps--
		e.direction = Reverse
	} else {
		e.steps++
		e.direction = Forward
	}
	return true
}

// Snapshot returns a consistent copy of the record.
func (e *EncoderState) Snapshot() EncoderSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EncoderSnapshot{
		Steps:     e.steps,
		Interval:  e.interval,
		Direction: e.direction,
		LastEvent: e.lastEvent,
		Accepted:  e.accepted,
		Rejected:  e.rejected,
	}
}

// ClearIntervalIfSteps zeroes the smoothed interval when the step count
// still equals steps, so a stopped shaft reads 0. The comparison and the
// clear share one critical section; an edge accepted since the caller's
// last look keeps its interval. Reports whether the interval was cleared.
func (e *EncoderState) ClearIntervalIfSteps(steps int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.steps != steps {
		return false
	}
	e.interval = 0
	return true
}
