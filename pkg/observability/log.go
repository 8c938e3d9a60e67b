package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks traces dispatch attempts at Debug and transitions at Info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.DebugContext(ctx, "dispatch",
				"cycle", e.CycleID,
				"event", eventType(e.Event),
				"state", e.Target.ID,
				"superstate", e.Target.Superstate,
				"depth", e.Depth,
			)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			rec := domain.NewTransitionRecord(e)
			logger.InfoContext(ctx, "transition",
				"cycle", e.CycleID,
				"from", rec.From,
				"to", rec.To,
				"event", rec.Event,
			)
		},
		OnUnhandled: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.DebugContext(ctx, "unhandled",
				"cycle", e.CycleID,
				"event", eventType(e.Event),
				"root", e.Target.ID,
			)
		},
	}
}

func eventType(ev domain.Event) domain.EventType {
	if ev == nil {
		return ""
	}
	return ev.Type()
}
