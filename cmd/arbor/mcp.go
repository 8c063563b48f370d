package main

import (
	"log"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server over stdio, so agents can load layouts,
search nodes, update data and commit through tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		rt, err := cli.BuildRuntime(cmd.Context(), cfg, logger, cli.BuildOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		srv := mcp.NewServer(rt.Engine.Workflow(), arbor.Version, mcp.WithLogger(logger))
		logger.Info("Starting arbor MCP server (stdio)")
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
