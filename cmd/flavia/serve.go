// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/flavia/internal/metrics"
	"github.com/pdiddy/flavia/internal/segment"
	"github.com/pdiddy/flavia/internal/server"
	"github.com/pdiddy/flavia/internal/session"
	"github.com/pdiddy/flavia/internal/store"
	"github.com/pdiddy/flavia/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the highlighting web UI and JSON API",
	Long: `Serve starts the HTTP server. Each browser session uploads a paper,
processes it into sentences, and marks sentences as relevant or not.
Session state lives in memory (or an in-memory SQLite database) and is
dropped when the session is closed or has been idle for the session TTL.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8050)")
	serveCmd.Flags().String("backend", "", "extraction backend: native, pdftotext, markitdown, or plain")
	serveCmd.Flags().String("store", "", "session store: memory or sqlite")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("segmenter.backend", serveCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("store.backend", serveCmd.Flags().Lookup("store"))

	rootCmd.AddCommand(serveCmd)
}

// closer is a session.Store that holds resources.
type closer interface {
	session.Store
	Close() error
}

// openStore returns the session store selected by cfg.
func openStore(ctx context.Context, cfg types.StoreConfig) (closer, error) {
	switch cfg.Backend {
	case types.StoreMemory, "":
		return store.NewMemory(), nil
	case types.StoreSQLite:
		return store.OpenSQLite(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("unsupported store backend %q: use memory or sqlite", cfg.Backend)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = types.DefaultConfig().Server.Addr
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seg, err := segment.New(ctx, cfg.Segmenter, segment.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configuring segmenter: %w", err)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	collector := metrics.New()
	mgr := session.NewManager(st, seg,
		session.WithLogger(logger),
		session.WithObserver(collector))

	srv, err := server.New(mgr,
		server.WithLogger(logger),
		server.WithMetrics(collector),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes))
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sweep(ctx, mgr, cfg.Server, logger)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", httpServer.Addr,
			"backend", seg.Backend(),
			"store", string(cfg.Store.Backend),
			"version", version)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)

	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "error", err)
			if err := httpServer.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
		logger.Info("server stopped")
		return nil
	}
}

// sweep closes idle sessions every interval until ctx is done.
func sweep(ctx context.Context, mgr *session.Manager, cfg types.ServerConfig, logger *slog.Logger) {
	if cfg.SweepInterval <= 0 || cfg.SessionTTL <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := mgr.Sweep(ctx, cfg.SessionTTL)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("sweeping idle sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("swept idle sessions", "count", n)
			}
		}
	}
}
