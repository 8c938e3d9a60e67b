package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GenerateMarkdown describes the hierarchy as a Markdown table, one row per node,
// followed by the observed transitions of the overlay.
func GenerateMarkdown(nodes []Node, initial domain.StateID, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("# States\n\n")
	sb.WriteString("| State | Kind | Parent | Notes |\n")
	sb.WriteString("|-------|------|--------|-------|\n")

	for _, n := range nodes {
		kind := "state"
		if n.Superstate {
			kind = "superstate"
		}
		parent := "-"
		if n.Parent != "" {
			parent = "`" + string(n.Parent) + "`"
		}
		var notes []string
		if n.ID == initial {
			notes = append(notes, "initial")
		}
		if overlay != nil && n.ID == overlay.CurrentState {
			notes = append(notes, "**current**")
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", n.ID, kind, parent, strings.Join(notes, ", "))
	}

	if overlay != nil && len(overlay.Transitions) > 0 {
		sb.WriteString("\n## Observed transitions\n\n")
		for _, e := range overlay.Transitions {
			fmt.Fprintf(&sb, "- `%s` → `%s`", e.From, e.To)
			if e.Event != "" {
				fmt.Fprintf(&sb, " on `%s`", e.Event)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
