package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the arbor ASCII art banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Green-to-teal gradient
	lines := []struct{ text, color string }{
		{"    __ _ _ __| |__   ___  _ __ ", "#4ade80"},
		{"   / _` | '__| '_ \\ / _ \\| '__|", "#34d399"},
		{"  | (_| | |  | |_) | (_) | |   ", "#2dd4bf"},
		{"   \\__,_|_|  |_.__/ \\___/|_|   ", "#22d3ee"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  hierarchical state machines  v"+version).Faint())
	fmt.Fprintln(w)
}
