package dsl

import "github.com/aretw0/arbor/pkg/domain"

// Handler reacts to an event. For a superstate, active is the current leaf state.
type Handler[M any] func(model *M, active domain.State, ev domain.Event) domain.Response

// Action is an entry or exit action. active is the leaf being left (exit) or the
// leaf being entered (entry).
type Action[M any] func(model *M, active domain.State)

// Node is the frozen description of one state or superstate.
type Node[M any] struct {
	ID         domain.StateID
	Parent     domain.StateID // Empty for roots
	Superstate bool
	Handler    Handler[M]
	OnEnter    Action[M]
	OnExit     Action[M]
}

// Ref returns the dispatch reference for this node.
func (n *Node[M]) Ref() domain.Ref {
	return domain.Ref{ID: n.ID, Superstate: n.Superstate}
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder[M any] struct {
	node *Node[M]
}

// Parent sets the superstate this node defers to.
func (n *NodeBuilder[M]) Parent(id domain.StateID) *NodeBuilder[M] {
	n.node.Parent = id
	return n
}

// OnEnter sets the entry action.
func (n *NodeBuilder[M]) OnEnter(fn Action[M]) *NodeBuilder[M] {
	n.node.OnEnter = fn
	return n
}

// OnExit sets the exit action.
func (n *NodeBuilder[M]) OnExit(fn Action[M]) *NodeBuilder[M] {
	n.node.OnExit = fn
	return n
}
