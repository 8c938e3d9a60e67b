package arbor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/google/uuid"
)

// Machine owns a model and the active state, and serializes every access to them.
type Machine[M any] struct {
	mu       sync.Mutex
	engine   *runtime.Engine[M]
	model    M
	current  domain.State
	poisoned bool
	changed  chan struct{} // closed and replaced after every cycle that may have mutated

	policy domain.UnhandledPolicy
	logger *slog.Logger
	name   string
}

type options struct {
	hooks  []domain.LifecycleHooks
	logger *slog.Logger
	policy domain.UnhandledPolicy
	name   string
}

// Option defines a functional option for configuring a Machine.
type Option func(*options)

// WithLifecycleHooks registers observability hooks. May be given several times;
// hook sets run in registration order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks)
	}
}

// WithLogger sets a custom structured logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithUnhandledPolicy decides what Handle does with events nobody handled.
func WithUnhandledPolicy(p domain.UnhandledPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithName labels logs and hook events of this machine.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// New creates a machine over graph, runs the entry actions of the initial state and
// returns it ready to accept events.
func New[M any](graph *dsl.Graph[M], model M, opts ...Option) (*Machine[M], error) {
	if graph == nil {
		return nil, fmt.Errorf("%w: nil graph", domain.ErrMalformedGraph)
	}

	o := options{policy: domain.UnhandledIgnore}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := domain.ParseUnhandledPolicy(string(o.policy)); err != nil {
		return nil, err
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.name != "" {
		o.logger = o.logger.With("machine", o.name)
	}

	m := &Machine[M]{
		engine: runtime.NewEngine(graph,
			runtime.WithLifecycleHooks(observability.Combine(o.hooks...)),
			runtime.WithLogger(o.logger),
			runtime.WithName(o.name),
		),
		model:   model,
		changed: make(chan struct{}),
		policy:  o.policy,
		logger:  o.logger,
		name:    o.name,
	}
	if err := m.enter(); err != nil {
		return nil, err
	}
	m.logger.Debug("machine started", "state", m.current.ID())
	return m, nil
}

func (m *Machine[M]) enter() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic while entering initial state: %v", domain.ErrMachinePoisoned, r)
		}
	}()
	m.current = m.engine.Enter(context.Background(), &m.model)
	return nil
}

// Name returns the label given with WithName.
func (m *Machine[M]) Name() string {
	return m.name
}

// Graph returns the state graph of the machine.
func (m *Machine[M]) Graph() *dsl.Graph[M] {
	return m.engine.Graph()
}

// Handle delivers ev and runs one complete dispatch cycle: resolution, optional
// transition and hooks, all inside one critical section. It never blocks on anything
// but the machine lock.
func (m *Machine[M]) Handle(ctx context.Context, ev domain.Event) (err error) {
	if ev == nil {
		return domain.ErrNilEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		return domain.ErrMachinePoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			m.poisoned = true
			m.broadcast()
			m.logger.Error("dispatch panicked, machine poisoned", "event", ev.Type(), "panic", fmt.Sprint(r))
			err = fmt.Errorf("%w: panic while handling %s: %v", domain.ErrMachinePoisoned, ev.Type(), r)
		}
	}()

	cycleID := uuid.NewString()
	res, err := m.engine.Resolve(ctx, cycleID, &m.model, m.current, ev)
	if err != nil {
		// A handler may already have mutated the model before failing.
		m.broadcast()
		return err
	}

	if res.Unhandled {
		return m.unhandled(ev)
	}

	if res.Response.Kind == domain.ResponseHandled {
		m.broadcast()
		return nil
	}

	from := m.current
	to := res.Response.Target
	if _, err := m.engine.Apply(ctx, &m.model, from, to); err != nil {
		m.broadcast()
		return fmt.Errorf("%s requested transition: %w", res.By, err)
	}
	m.current = to
	m.broadcast()

	// Committed; the hook observes the final state.
	m.engine.EmitTransition(ctx, cycleID, from, to, ev)
	return nil
}

func (m *Machine[M]) unhandled(ev domain.Event) error {
	switch m.policy {
	case domain.UnhandledLog:
		m.logger.Warn("unhandled event dropped", "event", ev.Type(), "state", m.current.ID())
	case domain.UnhandledFail:
		return fmt.Errorf("%w: %s in state %s", domain.ErrUnhandledEvent, ev.Type(), m.current.ID())
	}
	return nil
}

// broadcast wakes every WaitFor caller. Must hold m.mu.
func (m *Machine[M]) broadcast() {
	close(m.changed)
	m.changed = make(chan struct{})
}

// View runs fn with exclusive access to the model and the active state.
// fn must not retain the model pointer or call back into the machine.
func (m *Machine[M]) View(fn func(model *M, state domain.State)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		return domain.ErrMachinePoisoned
	}
	fn(&m.model, m.current)
	return nil
}

// State returns the active leaf state value.
func (m *Machine[M]) State() (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		return nil, domain.ErrMachinePoisoned
	}
	return m.current, nil
}

// WaitFor blocks until pred holds for the model and active state, re-checking after
// every dispatch cycle. It is the notify-based alternative to polling with View.
func (m *Machine[M]) WaitFor(ctx context.Context, pred func(model *M, state domain.State) bool) error {
	for {
		ok, changed, err := m.check(pred)
		if err != nil || ok {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (m *Machine[M]) check(pred func(model *M, state domain.State) bool) (bool, <-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poisoned {
		return false, nil, domain.ErrMachinePoisoned
	}
	return pred(&m.model, m.current), m.changed, nil
}
