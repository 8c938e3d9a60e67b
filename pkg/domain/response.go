package domain

// ResponseKind enumerates the outcomes of a single handler invocation.
type ResponseKind int

const (
	ResponseHandled ResponseKind = iota
	ResponseTransition
	ResponseSuper
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseHandled:
		return "handled"
	case ResponseTransition:
		return "transition"
	case ResponseSuper:
		return "super"
	}
	return "unknown"
}

// Response is what a handler returns. Exactly one outcome per invocation.
type Response struct {
	Kind ResponseKind
	// Target is only set for ResponseTransition.
	Target State
}

// Handled consumes the event without changing state.
func Handled() Response {
	return Response{Kind: ResponseHandled}
}

// Transition requests a change of the active state to target.
func Transition(target State) Response {
	return Response{Kind: ResponseTransition, Target: target}
}

// Super defers the event to the parent superstate.
func Super() Response {
	return Response{Kind: ResponseSuper}
}
