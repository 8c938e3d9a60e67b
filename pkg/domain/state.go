package domain

import "fmt"

// StateID identifies a state or superstate inside a graph.
type StateID string

// EventType names the kind of an event (e.g. "number_received").
type EventType string

// Event is an immutable message consumed read-only by handlers.
type Event interface {
	Type() EventType
}

// State is a concrete state value. Implementations are usually small structs whose
// fields hold per-state transient data; the previous value is dropped once a
// transition commits.
type State interface {
	ID() StateID
}

// Ref points at one rung of the dispatch chain: either the active leaf state or
// one of its superstates.
type Ref struct {
	ID         StateID `json:"id"`
	Superstate bool    `json:"superstate"`
}

func (r Ref) String() string {
	if r.Superstate {
		return fmt.Sprintf("superstate %s", r.ID)
	}
	return fmt.Sprintf("state %s", r.ID)
}

// UnhandledPolicy decides what happens when no state in the chain handles an event.
type UnhandledPolicy string

const (
	UnhandledIgnore UnhandledPolicy = "ignore" // Drop silently (default)
	UnhandledLog    UnhandledPolicy = "log"    // Drop and emit a warning
	UnhandledFail   UnhandledPolicy = "fail"   // Drop and return ErrUnhandledEvent
)

// ParseUnhandledPolicy validates a textual policy. The empty string maps to UnhandledIgnore.
func ParseUnhandledPolicy(s string) (UnhandledPolicy, error) {
	switch UnhandledPolicy(s) {
	case "", UnhandledIgnore:
		return UnhandledIgnore, nil
	case UnhandledLog:
		return UnhandledLog, nil
	case UnhandledFail:
		return UnhandledFail, nil
	}
	return "", fmt.Errorf("unknown unhandled policy %q (expected ignore, log or fail)", s)
}
