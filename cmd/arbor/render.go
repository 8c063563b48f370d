package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/controller"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <layout>",
	Short: "Materialize a layout and print its node tree",
	Long: `Loads a layout schema, binds its data, resolves its states and prints the
resulting tree as a colored outline, JSON or a markdown report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		rt, root, err := openLayout(cmd, args)
		if err != nil {
			return err
		}
		defer rt.Close()

		view := root.View()
		out := cmd.OutOrStdout()
		switch format {
		case "tree":
			tui.NewTreePrinter(out, cli.ColorProfile(out)).Print(view)
			return nil
		case "json":
			return cli.PrintJSON(out, view)
		case "markdown":
			var report *controller.ValidationReport
			if sources := datasources(view); len(sources) > 0 {
				if report, err = rt.Engine.Validate(cmd.Context(), sources...); err != nil {
					return err
				}
			}
			md := tui.Report(root.RootName(), view, report)
			if !cli.IsTerminal(out) {
				_, err := fmt.Fprint(out, md)
				return err
			}
			render, err := tui.NewRenderer(0)
			if err != nil {
				return err
			}
			styled, err := render(md)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(out, styled)
			return err
		}
		return fmt.Errorf("unknown format %q: want tree, json or markdown", format)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("format", "f", "tree", "Output format: tree, json or markdown")
	renderCmd.Flags().String("id", "", "Register the layout under this name")
}
