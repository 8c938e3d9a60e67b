package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

// Engine is the unsynchronized dispatch core. It resolves events against a graph and
// executes transitions, but owns neither the model nor the current state: the caller
// (arbor.Machine) holds them and serializes every call.
type Engine[M any] struct {
	graph  *dsl.Graph[M]
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	name   string
}

// EngineConfig holds the optional collaborators of an Engine.
type EngineConfig struct {
	Hooks  domain.LifecycleHooks
	Logger *slog.Logger
	Name   string
}

// EngineOption configures an Engine.
type EngineOption func(*EngineConfig)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(c *EngineConfig) {
		c.Hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *EngineConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithName labels every hook event emitted by the engine.
func WithName(name string) EngineOption {
	return func(c *EngineConfig) {
		c.Name = name
	}
}

// NewEngine creates an engine over a validated graph.
func NewEngine[M any](graph *dsl.Graph[M], opts ...EngineOption) *Engine[M] {
	cfg := EngineConfig{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine[M]{
		graph:  graph,
		hooks:  cfg.Hooks,
		logger: cfg.Logger,
		name:   cfg.Name,
	}
}

// Graph returns the state graph the engine dispatches over.
func (e *Engine[M]) Graph() *dsl.Graph[M] {
	return e.graph
}

func (e *Engine[M]) base(t domain.HookType, cycleID string) domain.HookBase {
	return domain.HookBase{
		Timestamp: time.Now(),
		Type:      t,
		Machine:   e.name,
		CycleID:   cycleID,
	}
}

func (e *Engine[M]) emitDispatch(ctx context.Context, cycleID string, ref domain.Ref, depth int, ev domain.Event) {
	if e.hooks.OnDispatch == nil {
		return
	}
	e.isolate(domain.HookDispatch, func() {
		e.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			HookBase: e.base(domain.HookDispatch, cycleID),
			Target:   ref,
			Depth:    depth,
			Event:    ev,
		})
	})
}

func (e *Engine[M]) emitUnhandled(ctx context.Context, cycleID string, ref domain.Ref, depth int, ev domain.Event) {
	if e.hooks.OnUnhandled == nil {
		return
	}
	e.isolate(domain.HookUnhandled, func() {
		e.hooks.OnUnhandled(ctx, &domain.DispatchEvent{
			HookBase: e.base(domain.HookUnhandled, cycleID),
			Target:   ref,
			Depth:    depth,
			Event:    ev,
		})
	})
}

// EmitTransition fires OnTransition. The caller invokes it once, after the new state
// has been committed.
func (e *Engine[M]) EmitTransition(ctx context.Context, cycleID string, from, to domain.State, trigger domain.Event) {
	if e.hooks.OnTransition == nil {
		return
	}
	e.isolate(domain.HookTransition, func() {
		e.hooks.OnTransition(ctx, &domain.TransitionEvent{
			HookBase: e.base(domain.HookTransition, cycleID),
			From:     from,
			To:       to,
			Trigger:  trigger,
		})
	})
}

// isolate runs a hook so that a panic inside it is logged and swallowed.
func (e *Engine[M]) isolate(kind domain.HookType, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("lifecycle hook panicked", "hook", kind, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
