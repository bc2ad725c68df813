package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rcsclean/internal/alerts"
	"github.com/obsidianstack/rcsclean/internal/api"
	"github.com/obsidianstack/rcsclean/internal/config"
	"github.com/obsidianstack/rcsclean/internal/metrics"
	"github.com/obsidianstack/rcsclean/internal/store"
	"github.com/obsidianstack/rcsclean/internal/ws"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, metrics and report stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.Server.HTTPPort = port
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides server.http_port)")
	return cmd
}

// server holds the components wired together by `rcsclean serve`.
type server struct {
	store   *store.Store
	alerts  *alerts.Engine
	metrics *metrics.Collector
	api     *api.Handler
	hub     *ws.Hub
	mux     *http.ServeMux
}

func (a *app) newServer() *server {
	sc := a.cfg.Server
	s := &server{
		store:   store.New(sc.Reports.TTL, sc.Reports.Max),
		alerts:  alerts.New(sc.Alerts),
		metrics: metrics.NewCollector(),
		mux:     http.NewServeMux(),
	}
	s.api = api.New(a.cfg.Policy.Pipeline(), s.store,
		api.WithAlerts(s.alerts),
		api.WithMetrics(s.metrics),
		api.WithAuth(sc.Auth),
		api.WithLogger(a.logger),
	)
	s.hub = ws.New(s.store, sc.Stream.BroadcastInterval)

	s.mux.Handle("/api/", s.api)
	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.Handle("/ws/stream", s.hub)
	return s
}

// reload applies a changed config file. Only the processing policy is hot;
// server settings need a restart.
func (s *server) reload(a *app, cfg *config.Config) {
	if err := s.api.SetPolicy(cfg.Policy.Pipeline()); err != nil {
		a.logger.Error("serve: policy reload rejected", "err", err)
	}
}

func (a *app) runServe(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sc := a.cfg.Server
	a.logger.Info("serve: starting",
		"http_port", sc.HTTPPort,
		"auth_mode", sc.Auth.Mode,
		"report_ttl", sc.Reports.TTL,
		"alert_rules", len(sc.Alerts.Rules),
	)

	s := a.newServer()
	go s.store.Run(ctx)
	go s.hub.Run(ctx)

	if a.configPath != "" {
		go func() {
			if err := config.Watch(ctx, a.configPath, func(cfg *config.Config) { s.reload(a, cfg) }); err != nil {
				a.logger.Error("serve: config watcher stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("serve: HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info("serve: shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("serve: shutdown", "err", err)
	}
	s.alerts.Wait()
	return nil
}
