package numbers

import (
	"github.com/aretw0/arbor/pkg/domain"
)

// State and superstate ids.
const (
	StateWaiting    domain.StateID = "waiting"
	StateProcessing domain.StateID = "processing_number"
	StateStoring    domain.StateID = "storing_number"
	SuperBusy       domain.StateID = "busy"
)

// Event types.
const (
	EventNumberReceived  domain.EventType = "number_received"
	EventNumberProcessed domain.EventType = "number_processed"
	EventNumberStored    domain.EventType = "number_stored"
)

// Program is the machine model: numbers waiting to be processed, oldest first.
type Program struct {
	Numbers []uint32 `json:"numbers"`
}

// NumberReceived delivers a new reading.
type NumberReceived struct {
	Value uint32 `json:"value" mapstructure:"value"`
}

func (NumberReceived) Type() domain.EventType { return EventNumberReceived }

// NumberProcessed reports that the head of the queue was processed.
type NumberProcessed struct{}

func (NumberProcessed) Type() domain.EventType { return EventNumberProcessed }

// NumberStored reports that the head of the queue was stored and can be dropped.
type NumberStored struct{}

func (NumberStored) Type() domain.EventType { return EventNumberStored }

// Waiting is the idle state. Only reachable with an empty queue.
type Waiting struct{}

func (Waiting) ID() domain.StateID { return StateWaiting }

// ProcessingNumber is busy working on the head of the queue.
type ProcessingNumber struct{}

func (ProcessingNumber) ID() domain.StateID { return StateProcessing }

// StoringNumber is busy storing the head of the queue.
type StoringNumber struct{}

func (StoringNumber) ID() domain.StateID { return StateStoring }
