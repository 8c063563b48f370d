package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <layout>",
	Short: "Export the layout tree visualization",
	Long: `Materializes a layout and outputs a Mermaid diagram (graph TD) of its node
tree. Nodes matching --match selectors are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, root, err := openLayout(cmd, args)
		if err != nil {
			return err
		}
		defer rt.Close()

		var overlay *graph.Overlay
		if pairs, _ := cmd.Flags().GetStringArray("match"); len(pairs) > 0 {
			selector, err := cli.ParseSelector(pairs)
			if err != nil {
				return err
			}
			nodes, err := rt.Engine.Search(selector, root.RootName())
			if err != nil {
				return err
			}
			overlay = &graph.Overlay{}
			for _, n := range nodes {
				overlay.Matched = append(overlay.Matched, n.ID())
			}
		}

		_, err = fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(root.View(), overlay))
		return err
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("id", "", "Register the layout under this name")
	graphCmd.Flags().StringArray("match", nil, "Highlight nodes matching key=value (repeatable)")
}
