package domain

import (
	"context"
	"time"
)

// HookType defines the category of a hook event.
type HookType string

const (
	HookDispatch   HookType = "dispatch"
	HookTransition HookType = "transition"
	HookUnhandled  HookType = "unhandled"
)

// HookBase contains common fields for all hook events.
type HookBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      HookType  `json:"type"`
	Machine   string    `json:"machine,omitempty"`
	CycleID   string    `json:"cycle_id"` // Correlates every hook fired by one Handle call
}

// DispatchEvent is emitted before a handler is tried, and once more under
// HookUnhandled when the chain is exhausted.
type DispatchEvent struct {
	HookBase
	Target Ref   `json:"target"`
	Depth  int   `json:"depth"` // 0 for the active leaf, 1 for its parent, ...
	Event  Event `json:"-"`
}

// TransitionEvent is emitted after a transition has been committed.
type TransitionEvent struct {
	HookBase
	From    State `json:"-"`
	To      State `json:"-"`
	Trigger Event `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks are side-effect only; they cannot influence dispatch.
type LifecycleHooks struct {
	OnDispatch   func(context.Context, *DispatchEvent)
	OnTransition func(context.Context, *TransitionEvent)
	OnUnhandled  func(context.Context, *DispatchEvent)
}

// TraceRecord is the flattened, serializable form of a hook event used by trace sinks.
type TraceRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Type      HookType  `json:"type"`
	Machine   string    `json:"machine,omitempty"`
	CycleID   string    `json:"cycle_id"`
	Event     EventType `json:"event,omitempty"`
	State     StateID   `json:"state,omitempty"`
	// Superstate marks dispatch records whose State is a superstate.
	Superstate bool    `json:"superstate,omitempty"`
	From       StateID `json:"from,omitempty"`
	To         StateID `json:"to,omitempty"`
}

// NewDispatchRecord flattens a dispatch or unhandled hook event.
func NewDispatchRecord(e *DispatchEvent) TraceRecord {
	rec := TraceRecord{
		Timestamp:  e.Timestamp,
		Type:       e.Type,
		Machine:    e.Machine,
		CycleID:    e.CycleID,
		State:      e.Target.ID,
		Superstate: e.Target.Superstate,
	}
	if e.Event != nil {
		rec.Event = e.Event.Type()
	}
	return rec
}

// NewTransitionRecord flattens a transition hook event.
func NewTransitionRecord(e *TransitionEvent) TraceRecord {
	rec := TraceRecord{
		Timestamp: e.Timestamp,
		Type:      e.Type,
		Machine:   e.Machine,
		CycleID:   e.CycleID,
	}
	if e.From != nil {
		rec.From = e.From.ID()
	}
	if e.To != nil {
		rec.To = e.To.ID()
	}
	if e.Trigger != nil {
		rec.Event = e.Trigger.Type()
	}
	return rec
}
