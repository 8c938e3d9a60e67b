package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// SinkHooks publishes every hook event to sink as a TraceRecord.
// Publish runs inside the machine's critical section, so a sink that does I/O
// should be wrapped in an AsyncSink first.
// Publish failures are logged and dropped; they never reach the machine.
func SinkHooks(sink ports.TraceSink, logger *slog.Logger) domain.LifecycleHooks {
	publish := func(ctx context.Context, rec domain.TraceRecord) {
		if err := sink.Publish(ctx, rec); err != nil {
			logger.Warn("failed to publish trace record", "type", rec.Type, "cycle", rec.CycleID, "err", err)
		}
	}
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			publish(ctx, domain.NewDispatchRecord(e))
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			publish(ctx, domain.NewTransitionRecord(e))
		},
		OnUnhandled: func(ctx context.Context, e *domain.DispatchEvent) {
			publish(ctx, domain.NewDispatchRecord(e))
		},
	}
}
