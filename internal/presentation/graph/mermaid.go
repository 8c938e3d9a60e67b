package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

// Node is the shape-only view of a graph node needed for rendering.
type Node struct {
	ID         domain.StateID
	Parent     domain.StateID
	Superstate bool
}

// Edge is a transition observed at runtime. Handlers are opaque functions, so the
// diagram can only show transitions that actually happened.
type Edge struct {
	From  domain.StateID
	To    domain.StateID
	Event domain.EventType
}

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	CurrentState domain.StateID
	Transitions  []Edge
}

// Describe flattens a state graph into renderable nodes, ordered by id.
func Describe[M any](g *dsl.Graph[M]) []Node {
	nodes := g.Nodes()
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Node{ID: n.ID, Parent: n.Parent, Superstate: n.Superstate})
	}
	return out
}

// OverlayFromTrace collects the distinct transitions found in records, in first-seen order.
func OverlayFromTrace(current domain.StateID, records []domain.TraceRecord) *GraphOverlay {
	o := &GraphOverlay{CurrentState: current}
	seen := make(map[Edge]bool)
	for _, r := range records {
		if r.Type != domain.HookTransition {
			continue
		}
		e := Edge{From: r.From, To: r.To, Event: r.Event}
		if !seen[e] {
			seen[e] = true
			o.Transitions = append(o.Transitions, e)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid stateDiagram-v2 from a list of nodes.
// Superstates become composite states holding their children; the initial state
// gets the [*] entry arrow. The overlay adds observed transitions and highlights the
// current state.
func GenerateMermaid(nodes []Node, initial domain.StateID, overlay *GraphOverlay) string {
	children := make(map[domain.StateID][]Node)
	for _, n := range nodes {
		children[n.Parent] = append(children[n.Parent], n)
	}

	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	if initial != "" {
		fmt.Fprintf(&sb, "    [*] --> %s\n", sanitizeMermaidID(initial))
	}

	var write func(parent domain.StateID, indent string)
	write = func(parent domain.StateID, indent string) {
		for _, n := range children[parent] {
			safeID := sanitizeMermaidID(n.ID)
			if n.Superstate {
				fmt.Fprintf(&sb, "%sstate \"%s\" as %s {\n", indent, n.ID, safeID)
				write(n.ID, indent+"    ")
				fmt.Fprintf(&sb, "%s}\n", indent)
				continue
			}
			fmt.Fprintf(&sb, "%sstate \"%s\" as %s\n", indent, n.ID, safeID)
		}
	}
	write("", "    ")

	if overlay == nil {
		return sb.String()
	}

	for _, e := range overlay.Transitions {
		arrow := fmt.Sprintf("    %s --> %s", sanitizeMermaidID(e.From), sanitizeMermaidID(e.To))
		if e.Event != "" {
			arrow += " : " + strings.ReplaceAll(string(e.Event), ":", " ")
		}
		sb.WriteString(arrow + "\n")
	}

	if overlay.CurrentState != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000\n")
		fmt.Fprintf(&sb, "    class %s current\n", sanitizeMermaidID(overlay.CurrentState))
	}

	return sb.String()
}

func sanitizeMermaidID(id domain.StateID) string {
	s := strings.ReplaceAll(string(id), ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
