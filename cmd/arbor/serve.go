package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine in server mode: a JSON API over the layout controller,
an SSE and websocket message stream for the rendering client and Prometheus
metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("watch") {
			cfg.Watch, _ = cmd.Flags().GetBool("watch")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := cli.BuildOptions{Buffer: 64}
		var reg *prometheus.Registry
		if cfg.HTTP.Metrics {
			reg = prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			opts.Registerer = reg
		}
		rt, err := cli.BuildRuntime(ctx, cfg, logger, opts)
		if err != nil {
			return err
		}
		defer rt.Close()

		// 1. Watch documents and evict stale schemas
		if rt.Watcher != nil {
			ids, err := rt.Watcher.Watch(ctx)
			if err != nil {
				return err
			}
			go cli.EvictOnChange(ctx, ids, rt.Schemas, logger)
		}

		// 2. Routes
		router := chi.NewRouter()
		if rt.Metrics != nil {
			router.Handle("/metrics", rt.Metrics.Handler())
		}
		router.Mount("/", httpAdapter.NewHandler(rt.Engine.Workflow(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStream(rt.Broadcaster),
			httpAdapter.WithVersion(arbor.Version),
		))

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			if cli.IsTerminal(os.Stdout) {
				tui.PrintBanner(os.Stdout, cli.ColorProfile(os.Stdout))
			}
			logger.Info("Starting arbor server", "addr", srv.Addr, "source", cfg.Source, "dir", cfg.Dir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Start shutdown")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				return srv.Close()
			}
			logger.Info("Arbor server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("watch", false, "Evict cached schemas when documents change (source loam)")
}
