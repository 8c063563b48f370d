package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor materializes schema-driven form layouts",
	Long: `Arbor turns declarative layout schemas into live UI node trees bound to
data, resolves their states and serves them to a rendering client.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to an arbor.yaml configuration file")
	flags.String("dir", ".", "Directory containing the layout and data documents")
	flags.String("source", config.SourceFile, "Document source: file, loam or http")
	flags.String("base-url", "", "Base URL of the document server (source http)")
	flags.String("redis", "", "Redis address for the schema cache and data pool")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
}

// setup resolves the configuration (file, then changed flags) and the logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return cfg, nil, err
	}

	override := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	override("dir", &cfg.Dir)
	override("source", &cfg.Source)
	override("base-url", &cfg.BaseURL)
	override("redis", &cfg.Redis.Addr)
	override("log-level", &cfg.Log.Level)
	override("log-format", &cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	logger, err := cli.CreateLogger(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
