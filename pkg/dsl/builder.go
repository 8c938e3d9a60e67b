package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the graph construction.
type Builder[M any] struct {
	nodes   map[domain.StateID]*Node[M]
	order   []domain.StateID
	initial domain.State
	errs    []error
}

// New creates a new graph builder for machines whose model is M.
func New[M any]() *Builder[M] {
	return &Builder[M]{
		nodes: make(map[domain.StateID]*Node[M]),
	}
}

// State declares a leaf state, one that can be active.
func (b *Builder[M]) State(id domain.StateID, h Handler[M]) *NodeBuilder[M] {
	return b.add(id, h, false)
}

// Superstate declares an ancestor-only state.
func (b *Builder[M]) Superstate(id domain.StateID, h Handler[M]) *NodeBuilder[M] {
	return b.add(id, h, true)
}

func (b *Builder[M]) add(id domain.StateID, h Handler[M], super bool) *NodeBuilder[M] {
	n := &Node[M]{ID: id, Superstate: super, Handler: h}
	if _, dup := b.nodes[id]; dup {
		b.errs = append(b.errs, fmt.Errorf("state %q declared twice", id))
		// Return a detached builder so chained calls don't touch the first declaration.
		return &NodeBuilder[M]{node: n}
	}
	b.nodes[id] = n
	b.order = append(b.order, id)
	return &NodeBuilder[M]{node: n}
}

// Initial sets the state value the machine starts in.
func (b *Builder[M]) Initial(s domain.State) *Builder[M] {
	b.initial = s
	return b
}

// Build validates the declarations and compiles them into an immutable Graph.
func (b *Builder[M]) Build() (*Graph[M], error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedGraph, err)
	}

	g := &Graph[M]{
		nodes:   make(map[domain.StateID]*Node[M], len(b.nodes)),
		depth:   make(map[domain.StateID]int, len(b.nodes)),
		initial: b.initial,
	}
	for id, n := range b.nodes {
		cp := *n
		g.nodes[id] = &cp
	}
	for id := range g.nodes {
		g.depth[id] = len(g.Ancestors(id))
	}
	return g, nil
}

func (b *Builder[M]) validate() error {
	errs := append([]error(nil), b.errs...)

	if b.initial == nil {
		errs = append(errs, errors.New("no initial state defined"))
	} else if n, ok := b.nodes[b.initial.ID()]; !ok {
		errs = append(errs, fmt.Errorf("initial state %q not defined", b.initial.ID()))
	} else if n.Superstate {
		errs = append(errs, fmt.Errorf("initial state %q is a superstate", b.initial.ID()))
	}

	for _, id := range b.order {
		n := b.nodes[id]
		if n.Handler == nil {
			errs = append(errs, fmt.Errorf("state %q has no handler", id))
		}
		if n.Parent == "" {
			continue
		}
		parent, ok := b.nodes[n.Parent]
		if !ok {
			errs = append(errs, fmt.Errorf("state %q references undefined parent %q", id, n.Parent))
			continue
		}
		if !parent.Superstate {
			errs = append(errs, fmt.Errorf("state %q has parent %q which is not a superstate", id, n.Parent))
		}
	}

	for _, id := range b.order {
		if err := b.checkParentCycle(id); err != nil {
			errs = append(errs, err)
			break
		}
	}

	return errors.Join(errs...)
}

func (b *Builder[M]) checkParentCycle(id domain.StateID) error {
	visited := make(map[domain.StateID]bool)
	current := id
	for current != "" {
		if visited[current] {
			return fmt.Errorf("cycle detected in parent hierarchy at state %q", current)
		}
		visited[current] = true
		n := b.nodes[current]
		if n == nil {
			break
		}
		current = n.Parent
	}
	return nil
}
