package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/numbers"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the state graph visualization",
	Long: `Outputs the state hierarchy of the numbers machine, either as a Mermaid
stateDiagram-v2 (default) or as a Markdown table rendered for the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		g, err := numbers.NewGraph()
		if err != nil {
			return err
		}
		nodes, initial := graph.Describe(g), g.Initial().ID()

		out := cmd.OutOrStdout()
		switch format {
		case "mermaid":
			fmt.Fprint(out, graph.GenerateMermaid(nodes, initial, nil))
		case "markdown":
			terminal := false
			if f, ok := out.(*os.File); ok {
				terminal = tui.IsTerminal(f)
			}
			render, err := tui.NewRenderer(terminal)
			if err != nil {
				return err
			}
			text, err := render(graph.GenerateMarkdown(nodes, initial, nil))
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
		default:
			return fmt.Errorf("unknown format %q (expected mermaid or markdown)", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or markdown")
}
