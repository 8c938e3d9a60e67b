package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/muesli/termenv"
)

// ConsoleHooks prints a human readable trace of every dispatch attempt and transition:
//
//	--- Dispatched event number_received to state waiting
//	--- Transitioned from waiting to processing_number
//
// Colors follow the capabilities of w.
func ConsoleHooks(w io.Writer, opts ...termenv.OutputOption) domain.LifecycleHooks {
	out := termenv.NewOutput(w, opts...)
	var mu sync.Mutex
	emit := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, s)
	}

	dim := func(s string) string { return out.String(s).Faint().String() }
	event := func(ev domain.Event) string {
		if ev == nil {
			return ""
		}
		return out.String(string(ev.Type())).Foreground(out.Color("#fbbf24")).String()
	}
	state := func(id domain.StateID) string {
		return out.String(string(id)).Foreground(out.Color("#34d399")).Bold().String()
	}

	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			kind := "state"
			if e.Target.Superstate {
				kind = "superstate"
			}
			emit(fmt.Sprintf("%s %s to %s %s", dim("--- Dispatched event"), event(e.Event), kind, state(e.Target.ID)))
		},
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			rec := domain.NewTransitionRecord(e)
			emit(fmt.Sprintf("%s %s to %s", dim("--- Transitioned from"), state(rec.From), state(rec.To)))
		},
		OnUnhandled: func(_ context.Context, e *domain.DispatchEvent) {
			emit(fmt.Sprintf("%s %s", dim("--- Unhandled event"), event(e.Event)))
		},
	}
}
