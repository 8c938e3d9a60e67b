package numbers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// WaitMode selects how a following Worker waits for new numbers.
type WaitMode string

const (
	// WaitPoll re-reads the queue head after a sleep that backs off while idle.
	WaitPoll WaitMode = "poll"
	// WaitNotify blocks on Machine.WaitFor until a dispatch cycle queues something.
	WaitNotify WaitMode = "notify"
)

// ParseWaitMode validates a textual wait mode. The empty string maps to WaitNotify.
func ParseWaitMode(s string) (WaitMode, error) {
	switch WaitMode(s) {
	case "", WaitNotify:
		return WaitNotify, nil
	case WaitPoll:
		return WaitPoll, nil
	}
	return "", fmt.Errorf("unknown wait mode %q (expected poll or notify)", s)
}

// Result is one processed number.
type Result struct {
	Value  uint32 `json:"value"`
	Square uint64 `json:"square"`
}

// Worker is the consumer side of a numbers machine. It must be the only party that sends
// NumberProcessed and NumberStored, so it may read the head and act on it in two steps.
// Outside producers go through DecodeInput, which refuses both events.
type Worker struct {
	machine  *Machine
	out      io.Writer
	logger   *slog.Logger
	mode     WaitMode
	interval time.Duration
	follow   bool

	mu     sync.Mutex
	stored []uint32
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithOutput sets where the console trace ("Processing number 4... 4^2 = 16") goes.
func WithOutput(w io.Writer) WorkerOption {
	return func(wk *Worker) {
		wk.out = w
	}
}

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(wk *Worker) {
		wk.logger = logger
	}
}

// WithFollow keeps the worker running on an empty queue until its context ends.
// Without it the worker returns as soon as the queue is drained.
func WithFollow(mode WaitMode, pollInterval time.Duration) WorkerOption {
	return func(wk *Worker) {
		wk.follow = true
		wk.mode = mode
		if pollInterval > 0 {
			wk.interval = pollInterval
		}
	}
}

// NewWorker creates a worker for m.
func NewWorker(m *Machine, opts ...WorkerOption) *Worker {
	w := &Worker{
		machine:  m,
		out:      io.Discard,
		logger:   logging.NewNop(),
		mode:     WaitNotify,
		interval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Stored returns the values stored so far, in processing order.
func (w *Worker) Stored() []uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uint32(nil), w.stored...)
}

// Run processes numbers until the queue is empty (or, when following, until ctx ends).
// It returns the results produced by this call.
func (w *Worker) Run(ctx context.Context) ([]Result, error) {
	var results []Result
	idle := 0

	for {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		n, ok, err := Head(w.machine)
		if err != nil {
			return results, err
		}
		if !ok {
			if !w.follow {
				return results, nil
			}
			if err := w.wait(ctx, idle); err != nil {
				return results, err
			}
			idle++
			continue
		}
		idle = 0

		res, err := w.step(ctx, n)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
}

func (w *Worker) step(ctx context.Context, n uint32) (Result, error) {
	fmt.Fprintf(w.out, "Processing number %d... ", n)
	res := Result{Value: n, Square: uint64(n) * uint64(n)}
	fmt.Fprintf(w.out, "%d^2 = %d\n", n, res.Square)

	if err := w.machine.Handle(ctx, NumberProcessed{}); err != nil {
		return res, fmt.Errorf("processing %d: %w", n, err)
	}

	fmt.Fprintf(w.out, "Storing number: %d... ", n)
	w.mu.Lock()
	w.stored = append(w.stored, n)
	fmt.Fprintf(w.out, "collection is now %v\n", w.stored)
	w.mu.Unlock()

	if err := w.machine.Handle(ctx, NumberStored{}); err != nil {
		return res, fmt.Errorf("storing %d: %w", n, err)
	}

	w.logger.Debug("number stored", "value", n, "square", res.Square)
	return res, nil
}

func (w *Worker) wait(ctx context.Context, idle int) error {
	if w.mode == WaitNotify {
		return w.machine.WaitFor(ctx, func(p *Program, _ domain.State) bool {
			return len(p.Numbers) > 0
		})
	}

	// Back off up to 16x the base interval while the queue stays empty.
	t := time.NewTimer(w.interval << min(idle, 4))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
