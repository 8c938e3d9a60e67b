package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Dispatcher is the public face of a running machine as seen by drivers and transports.
type Dispatcher interface {
	// Handle delivers one event. It is safe for concurrent use and runs to completion.
	Handle(ctx context.Context, ev domain.Event) error

	// State returns the active leaf state value.
	State() (domain.State, error)
}
