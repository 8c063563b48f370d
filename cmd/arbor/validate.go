package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var errInvalid = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate <layout>",
	Short: "Validate the data bound to a layout",
	Long: `Materializes a layout and runs the data.update.could plugins over the
current value of every bound node. Without --source every datasource of the
layout is checked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, root, err := openLayout(cmd, args)
		if err != nil {
			return err
		}
		defer rt.Close()

		sources, _ := cmd.Flags().GetStringSlice("source")
		sources = splitList(sources)
		if len(sources) == 0 {
			sources = datasources(root.View())
		}

		report, err := rt.Engine.Validate(cmd.Context(), sources...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := cli.PrintJSON(out, report); err != nil {
				return err
			}
			if !report.OK {
				return errInvalid
			}
			return nil
		}

		for _, r := range report.Results {
			status := "ok"
			if r.Error.Failed() {
				status = "FAILED " + r.Error.Code
			}
			fmt.Fprintf(out, "%-24s %-12s %s\n", r.Source, r.NodeID, status)
		}
		if !report.OK {
			return errInvalid
		}
		fmt.Fprintln(out, "Layout data is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("id", "", "Register the layout under this name")
	validateCmd.Flags().StringSlice("source", nil, "Datasources to validate (default: all bound)")
	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
