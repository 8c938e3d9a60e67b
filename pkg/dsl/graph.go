package dsl

import (
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// Graph is a validated, immutable state graph.
type Graph[M any] struct {
	nodes   map[domain.StateID]*Node[M]
	depth   map[domain.StateID]int
	initial domain.State
}

// Initial returns the initial state value.
func (g *Graph[M]) Initial() domain.State {
	return g.initial
}

// Node looks up a node by id.
func (g *Graph[M]) Node(id domain.StateID) (*Node[M], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// IsLeaf reports whether id names a state that may become active.
func (g *Graph[M]) IsLeaf(id domain.StateID) bool {
	n, ok := g.nodes[id]
	return ok && !n.Superstate
}

// Parent returns the direct superstate of id, or "" for roots and unknown ids.
func (g *Graph[M]) Parent(id domain.StateID) domain.StateID {
	if n, ok := g.nodes[id]; ok {
		return n.Parent
	}
	return ""
}

// Depth returns the number of ancestors of id.
func (g *Graph[M]) Depth(id domain.StateID) int {
	return g.depth[id]
}

// Ancestors returns the superstates of id, innermost first. id itself is excluded.
func (g *Graph[M]) Ancestors(id domain.StateID) []domain.StateID {
	var out []domain.StateID
	for p := g.Parent(id); p != ""; p = g.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Chain returns id followed by its ancestors: the order handlers are tried in.
func (g *Graph[M]) Chain(id domain.StateID) []domain.StateID {
	return append([]domain.StateID{id}, g.Ancestors(id)...)
}

// CommonAncestor returns the nearest superstate shared by a and b, or "" when they
// only meet at the (virtual) root. A node is not its own common ancestor, so a
// self-transition exits and re-enters the leaf.
func (g *Graph[M]) CommonAncestor(a, b domain.StateID) domain.StateID {
	seen := make(map[domain.StateID]bool)
	for _, id := range g.Ancestors(a) {
		seen[id] = true
	}
	for _, id := range g.Ancestors(b) {
		if seen[id] {
			return id
		}
	}
	return ""
}

// Nodes returns all nodes ordered by id.
func (g *Graph[M]) Nodes() []*Node[M] {
	out := make([]*Node[M], 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node[M]) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Children returns the direct children of id ordered by id. Use "" for the roots.
func (g *Graph[M]) Children(id domain.StateID) []*Node[M] {
	var out []*Node[M]
	for _, n := range g.Nodes() {
		if n.Parent == id {
			out = append(out, n)
		}
	}
	return out
}
