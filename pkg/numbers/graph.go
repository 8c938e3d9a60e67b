package numbers

import (
	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

// Machine is an arbor machine running a Program.
type Machine = arbor.Machine[Program]

// NewGraph declares the waiting/busy hierarchy.
func NewGraph() (*dsl.Graph[Program], error) {
	b := dsl.New[Program]()

	b.State(StateWaiting, waiting)
	b.Superstate(SuperBusy, busy)
	b.State(StateProcessing, processingNumber).Parent(SuperBusy)
	b.State(StateStoring, storingNumber).Parent(SuperBusy)

	b.Initial(Waiting{})
	return b.Build()
}

// New builds the graph and a machine over an empty Program.
func New(opts ...arbor.Option) (*Machine, error) {
	g, err := NewGraph()
	if err != nil {
		return nil, err
	}
	return arbor.New(g, Program{}, opts...)
}

func waiting(p *Program, _ domain.State, ev domain.Event) domain.Response {
	if e, ok := ev.(NumberReceived); ok {
		p.Numbers = append(p.Numbers, e.Value)
		return domain.Transition(ProcessingNumber{})
	}
	return domain.Super()
}

func processingNumber(_ *Program, _ domain.State, ev domain.Event) domain.Response {
	if _, ok := ev.(NumberProcessed); ok {
		return domain.Transition(StoringNumber{})
	}
	return domain.Super()
}

func storingNumber(p *Program, _ domain.State, ev domain.Event) domain.Response {
	if _, ok := ev.(NumberStored); !ok {
		return domain.Super()
	}
	p.Numbers = p.Numbers[1:]
	if len(p.Numbers) == 0 {
		return domain.Transition(Waiting{})
	}
	return domain.Transition(ProcessingNumber{})
}

// busy queues numbers that arrive while a leaf is already working.
func busy(p *Program, _ domain.State, ev domain.Event) domain.Response {
	if e, ok := ev.(NumberReceived); ok {
		p.Numbers = append(p.Numbers, e.Value)
		return domain.Handled()
	}
	return domain.Super()
}

// Head returns the oldest pending number under the machine lock.
func Head(m *Machine) (uint32, bool, error) {
	var (
		head uint32
		ok   bool
	)
	err := m.View(func(p *Program, _ domain.State) {
		if len(p.Numbers) > 0 {
			head, ok = p.Numbers[0], true
		}
	})
	return head, ok, err
}

// Pending returns a copy of the queue under the machine lock.
func Pending(m *Machine) ([]uint32, error) {
	var out []uint32
	err := m.View(func(p *Program, _ domain.State) {
		out = append([]uint32(nil), p.Numbers...)
	})
	return out, err
}

// Snapshot is a consistent, serializable view of a numbers machine.
type Snapshot struct {
	State   domain.StateID `json:"state"`
	Numbers []uint32       `json:"numbers"`
}

// Take captures the active state and queue in one critical section.
func Take(m *Machine) (Snapshot, error) {
	var snap Snapshot
	err := m.View(func(p *Program, s domain.State) {
		snap.State = s.ID()
		snap.Numbers = append([]uint32{}, p.Numbers...)
	})
	return snap, err
}
