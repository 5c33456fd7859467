package mqtt

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/motorctl/internal/control"
)

// TelemetryWorker moves telemetry off the control goroutine. Offer never
// blocks: samples are throttled to the telemetry interval and dropped when
// the queue is full.
type TelemetryWorker struct {
	pub      Publisher
	queue    chan control.Sample
	throttle *control.Reporter
	dropped  atomic.Uint64
	done     chan struct{}
}

// NewTelemetryWorker creates a worker publishing at most once per interval.
// An interval of zero publishes every offered sample.
func NewTelemetryWorker(pub Publisher, interval time.Duration, queueSize int) *TelemetryWorker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &TelemetryWorker{
		pub:      pub,
		queue:    make(chan control.Sample, queueSize),
		throttle: control.NewReporter(interval),
		done:     make(chan struct{}),
	}
}

// Offer hands a sample to the worker. It must be called from a single
// goroutine (the control loop). Returns false if the sample was throttled
// or dropped.
func (w *TelemetryWorker) Offer(s control.Sample) bool {
	if !w.throttle.Due(s.Time) {
		return false
	}
	select {
	case w.queue <- s:
		return true
	default:
		if w.dropped.Add(1) == 1 {
			log.Printf("mqtt: telemetry queue full, dropping samples")
		}
		return false
	}
}

// Dropped returns the number of samples dropped because the queue was full.
func (w *TelemetryWorker) Dropped() uint64 {
	return w.dropped.Load()
}

// Run publishes queued samples until ctx is done, then flushes whatever is
// still queued.
func (w *TelemetryWorker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return
		case s := <-w.queue:
			w.publish(s)
		}
	}
}

// Done is closed when Run has returned.
func (w *TelemetryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *TelemetryWorker) flush() {
	for {
		select {
		case s := <-w.queue:
			w.publish(s)
		default:
			return
		}
	}
}

func (w *TelemetryWorker) publish(s control.Sample) {
	if err := w.pub.Publish(s); err != nil {
		log.Printf("mqtt: publish telemetry: %v", err)
	}
}
