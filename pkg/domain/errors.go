package domain

import "errors"

// ErrUnhandledEvent is returned under UnhandledFail when every state in the chain deferred.
var ErrUnhandledEvent = errors.New("unhandled event")

// ErrMalformedGraph is returned when a state graph fails validation at build time.
var ErrMalformedGraph = errors.New("malformed state graph")

// ErrInvalidTarget is returned when a handler requests a transition to a state that
// is unknown or is a superstate.
var ErrInvalidTarget = errors.New("invalid transition target")

// ErrMachinePoisoned is returned once a handler or action panicked inside a dispatch
// cycle. The machine's invariants are no longer guaranteed and it must not be reused.
var ErrMachinePoisoned = errors.New("machine poisoned")

// ErrNilEvent is returned when Handle is given a nil event.
var ErrNilEvent = errors.New("nil event")
