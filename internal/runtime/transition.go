package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// Plan is the ordered bookkeeping of one transition.
type Plan struct {
	From domain.StateID
	To   domain.StateID
	// Ancestor is the nearest common superstate; "" means the virtual root.
	Ancestor domain.StateID
	// Exit lists states being left, innermost first, excluding Ancestor.
	Exit []domain.StateID
	// Enter lists states being entered, outermost first, ending with To.
	Enter []domain.StateID
}

// Plan computes exit and entry paths between two leaf states.
func (e *Engine[M]) Plan(from, to domain.StateID) (Plan, error) {
	if !e.graph.IsLeaf(to) {
		return Plan{}, fmt.Errorf("%w: %q is not a leaf state of the graph", domain.ErrInvalidTarget, to)
	}

	p := Plan{From: from, To: to, Ancestor: e.graph.CommonAncestor(from, to)}
	for _, id := range e.graph.Chain(from) {
		if id == p.Ancestor {
			break
		}
		p.Exit = append(p.Exit, id)
	}
	for _, id := range e.graph.Chain(to) {
		if id == p.Ancestor {
			break
		}
		p.Enter = append(p.Enter, id)
	}
	slices.Reverse(p.Enter)
	return p, nil
}

// Apply runs the exit actions of from and the entry actions of to, in Plan order.
// The target is validated before any action runs; on error nothing has been executed.
// Committing the new state is left to the caller.
func (e *Engine[M]) Apply(ctx context.Context, model *M, from, to domain.State) (Plan, error) {
	p, err := e.Plan(from.ID(), to.ID())
	if err != nil {
		return p, err
	}

	for _, id := range p.Exit {
		if n, ok := e.graph.Node(id); ok && n.OnExit != nil {
			e.logger.Debug("exiting state", "state", id)
			n.OnExit(model, from)
		}
	}
	for _, id := range p.Enter {
		if n, ok := e.graph.Node(id); ok && n.OnEnter != nil {
			e.logger.Debug("entering state", "state", id)
			n.OnEnter(model, to)
		}
	}

	e.logger.Debug("transition applied", "from", p.From, "to", p.To, "ancestor", p.Ancestor)
	return p, nil
}

// Enter runs the entry actions from the outermost superstate down to the initial
// state and returns the initial state value.
func (e *Engine[M]) Enter(ctx context.Context, model *M) domain.State {
	initial := e.graph.Initial()
	chain := e.graph.Chain(initial.ID())
	slices.Reverse(chain)
	for _, id := range chain {
		if n, ok := e.graph.Node(id); ok && n.OnEnter != nil {
			n.OnEnter(model, initial)
		}
	}
	return initial
}
