package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// Resolution is the outcome of walking the superstate chain for one event.
type Resolution struct {
	Response domain.Response
	// By is the rung that produced Response. Zero when Unhandled.
	By domain.Ref
	// Tried lists every rung whose handler ran, leaf first.
	Tried     []domain.Ref
	Unhandled bool
}

// Resolve tries the handler of current, then each superstate up the chain, until one
// returns something other than Super. OnDispatch fires before every handler attempt.
// A chain that is exhausted yields Unhandled and fires OnUnhandled.
func (e *Engine[M]) Resolve(ctx context.Context, cycleID string, model *M, current domain.State, ev domain.Event) (Resolution, error) {
	var res Resolution

	for depth, id := range e.graph.Chain(current.ID()) {
		node, ok := e.graph.Node(id)
		if !ok {
			return res, fmt.Errorf("%w: active state %q is not part of the graph", domain.ErrInvalidTarget, id)
		}

		ref := node.Ref()
		e.emitDispatch(ctx, cycleID, ref, depth, ev)
		res.Tried = append(res.Tried, ref)

		resp := node.Handler(model, current, ev)
		switch resp.Kind {
		case domain.ResponseSuper:
			continue
		case domain.ResponseHandled:
		case domain.ResponseTransition:
			if resp.Target == nil {
				return res, fmt.Errorf("%w: %s returned a transition without target", domain.ErrInvalidTarget, ref)
			}
		default:
			return res, fmt.Errorf("%s returned unknown response kind %d", ref, resp.Kind)
		}

		e.logger.Debug("event resolved",
			"event", ev.Type(),
			"by", ref.ID,
			"superstate", ref.Superstate,
			"response", resp.Kind.String(),
		)
		res.Response = resp
		res.By = ref
		return res, nil
	}

	res.Unhandled = true
	res.Response = domain.Super()
	last := res.Tried[len(res.Tried)-1]
	e.logger.Debug("event unhandled", "event", ev.Type(), "state", current.ID(), "root", last.ID)
	e.emitUnhandled(ctx, cycleID, last, len(res.Tried)-1, ev)
	return res, nil
}
