package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/numbers"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app wires one numbers machine with every observer the configuration asks for.
type app struct {
	machine  *numbers.Machine
	trace    ports.TraceSink
	registry *prometheus.Registry
	closers  []func() error
}

// newApp builds the machine. out receives the console trace; extra hooks run last.
func newApp(ctx context.Context, c config.Config, logger *slog.Logger, out io.Writer, extra ...domain.LifecycleHooks) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := observability.NewMetrics(a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if c.Redis.Addr != "" {
		sink := redis.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB,
			redis.WithStream(c.Redis.Stream),
			redis.WithMaxLen(c.Redis.MaxLen),
		)
		if _, err := sink.Recent(ctx, 1); err != nil {
			sink.Close()
			return nil, fmt.Errorf("redis trace sink at %s: %w", c.Redis.Addr, err)
		}
		async := observability.NewAsyncSink(sink, logger, c.Trace.Capacity)
		a.trace = async
		a.closers = append(a.closers, async.Close, sink.Close)
		logger.Info("publishing trace to redis", "addr", c.Redis.Addr, "stream", c.Redis.Stream)
	} else {
		a.trace = memory.NewRecorder(c.Trace.Capacity)
	}

	policy, _ := domain.ParseUnhandledPolicy(c.Machine.Unhandled)
	opts := []arbor.Option{
		arbor.WithName(c.Machine.Name),
		arbor.WithLogger(logger),
		arbor.WithUnhandledPolicy(policy),
	}
	if c.Trace.Console {
		opts = append(opts, arbor.WithLifecycleHooks(tui.ConsoleHooks(out)))
	}
	opts = append(opts,
		arbor.WithLifecycleHooks(observability.LogHooks(logger)),
		arbor.WithLifecycleHooks(metrics.Hooks()),
		arbor.WithLifecycleHooks(observability.SinkHooks(a.trace, logger)),
	)
	for _, h := range extra {
		opts = append(opts, arbor.WithLifecycleHooks(h))
	}

	a.machine, err = numbers.New(opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	st, err := a.machine.State()
	if err != nil {
		a.Close()
		return nil, err
	}
	metrics.MarkActive(c.Machine.Name, st.ID())
	return a, nil
}

// Diagram renders the graph with the current state and the recorded transitions.
func (a *app) Diagram(ctx context.Context) (string, error) {
	st, err := a.machine.State()
	if err != nil {
		return "", err
	}
	recs, err := a.trace.Recent(ctx, 1000)
	if err != nil {
		return "", err
	}
	g := a.machine.Graph()
	return graph.GenerateMermaid(graph.Describe(g), g.Initial().ID(), graph.OverlayFromTrace(st.ID(), recs)), nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
