package observability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

var (
	// ErrSinkFull is returned by AsyncSink.Publish when its buffer is full and the record was dropped.
	ErrSinkFull = errors.New("trace sink buffer full")
	// ErrSinkClosed is returned by AsyncSink.Publish after Close.
	ErrSinkClosed = errors.New("trace sink closed")
)

const (
	// DefaultAsyncBuffer is the queue size used when NewAsyncSink is given a non-positive buffer.
	DefaultAsyncBuffer = 1024
	// DefaultPublishTimeout bounds each forwarded Publish.
	DefaultPublishTimeout = 5 * time.Second
)

// AsyncSink decouples a slow TraceSink from the dispatch critical section.
// Publish only enqueues; a single goroutine forwards records to the inner sink in order.
// When the queue is full the record is dropped and counted.
type AsyncSink struct {
	inner   ports.TraceSink
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan domain.TraceRecord
	done    chan struct{}
	dropped atomic.Uint64
}

// NewAsyncSink starts the forwarding goroutine. Call Close to flush and stop it.
func NewAsyncSink(inner ports.TraceSink, logger *slog.Logger, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	a := &AsyncSink{
		inner:   inner,
		logger:  logger,
		timeout: DefaultPublishTimeout,
		queue:   make(chan domain.TraceRecord, buffer),
		done:    make(chan struct{}),
	}
	go a.forward()
	return a
}

// Publish never blocks on the inner sink.
func (a *AsyncSink) Publish(_ context.Context, rec domain.TraceRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrSinkClosed
	}
	select {
	case a.queue <- rec:
		return nil
	default:
		a.dropped.Add(1)
		return ErrSinkFull
	}
}

// Recent reads through to the inner sink; records still queued are not included.
func (a *AsyncSink) Recent(ctx context.Context, n int) ([]domain.TraceRecord, error) {
	return a.inner.Recent(ctx, n)
}

// Dropped reports how many records were discarded because the queue was full.
func (a *AsyncSink) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting records and waits until the queued ones have been forwarded.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	if n := a.Dropped(); n > 0 {
		a.logger.Warn("trace records dropped", "count", n)
	}
	return nil
}

func (a *AsyncSink) forward() {
	defer close(a.done)
	for rec := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.inner.Publish(ctx, rec); err != nil {
			a.logger.Warn("failed to forward trace record", "type", rec.Type, "cycle", rec.CycleID, "err", err)
		}
		cancel()
	}
}
