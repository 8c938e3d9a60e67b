package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Combine merges several hook sets into one that calls each in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var dispatch, unhandled []func(context.Context, *domain.DispatchEvent)
	var transition []func(context.Context, *domain.TransitionEvent)

	for _, s := range sets {
		if s.OnDispatch != nil {
			dispatch = append(dispatch, s.OnDispatch)
		}
		if s.OnUnhandled != nil {
			unhandled = append(unhandled, s.OnUnhandled)
		}
		if s.OnTransition != nil {
			transition = append(transition, s.OnTransition)
		}
	}

	var out domain.LifecycleHooks
	if len(dispatch) > 0 {
		out.OnDispatch = func(ctx context.Context, e *domain.DispatchEvent) {
			for _, fn := range dispatch {
				fn(ctx, e)
			}
		}
	}
	if len(unhandled) > 0 {
		out.OnUnhandled = func(ctx context.Context, e *domain.DispatchEvent) {
			for _, fn := range unhandled {
				fn(ctx, e)
			}
		}
	}
	if len(transition) > 0 {
		out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
			for _, fn := range transition {
				fn(ctx, e)
			}
		}
	}
	return out
}
