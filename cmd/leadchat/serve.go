package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/krauseinafrica/leadchat"
	"github.com/krauseinafrica/leadchat/internal/config"
	"github.com/krauseinafrica/leadchat/internal/logging"
	"github.com/krauseinafrica/leadchat/internal/metrics"
	"github.com/krauseinafrica/leadchat/pkg/adapters/httpapi"
	"github.com/krauseinafrica/leadchat/pkg/adapters/webhook"
	"github.com/krauseinafrica/leadchat/pkg/domain"
	"github.com/krauseinafrica/leadchat/pkg/ports"
	"github.com/krauseinafrica/leadchat/pkg/script"
	"github.com/krauseinafrica/leadchat/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the widget HTTP server",
	Long: `Starts the leadchat server, exposing the widget session API, an SSE
event stream per session, and Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides LEADCHAT_ADDR)")
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	graph := script.Default()
	if path := scriptPathFromFlags(cmd, cfg.ScriptPath); path != "" {
		graph, err = script.LoadFile(path)
		if err != nil {
			return err
		}
		logger.Info("script loaded", "path", path, "nodes", graph.Len())
	}

	var submitter ports.LeadSubmitter = ports.NopSubmitter{}
	if cfg.LeadURL != "" {
		submitter = webhook.New(cfg.LeadURL)
		logger.Info("lead webhook configured", "url", cfg.LeadURL)
	} else {
		logger.Warn("LEADCHAT_LEAD_URL not set; leads will be dropped")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mets := metrics.New(registry)

	streams := httpapi.NewStreamManager()

	engine, err := leadchat.New(graph,
		leadchat.WithSubmitter(submitter),
		leadchat.WithLogger(logger),
		leadchat.WithLifecycleHooks(domain.MergeHooks(
			mets.Hooks(),
			streams.Hooks(logger),
		)),
	)
	if err != nil {
		return err
	}

	sessions := session.NewManager(engine,
		session.WithLogger(logger),
		session.WithIdleTTL(cfg.SessionTTL),
	)
	sessions.StartJanitor(time.Minute)
	defer sessions.Shutdown()

	metrics.RegisterActiveSessions(registry, sessions.Len)

	api := httpapi.NewServer(sessions,
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(mets),
		httpapi.WithStreams(streams),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", api.Handler())

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("shutdown started", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("killing server: %w", err)
			}
		}
		logger.Info("server stopped gracefully")
		return nil
	}
}
