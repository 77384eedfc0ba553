// orderd is the order service: the authoritative store of orders and
// trades. It exposes the REST API and publishes lifecycle events to the
// message bus.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ordinex/venue/bus"
	"github.com/ordinex/venue/config"
	"github.com/ordinex/venue/rest"
	"github.com/ordinex/venue/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("venue")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.OrderService.DSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	if err := st.Migrate(); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}
	if err := st.SeedUsers(); err != nil {
		logger.Error("failed to seed users", "error", err)
		os.Exit(1)
	}

	b, err := bus.Connect(cfg.Bus.URL, cfg.Bus.ConnectRetries, cfg.Bus.RetryDelay)
	if err != nil {
		logger.Error("message bus unreachable, exiting", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	server := rest.NewServer(st, b)
	httpServer := &http.Server{
		Addr:    cfg.OrderService.ListenAddr,
		Handler: server.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("order service started", "addr", cfg.OrderService.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("order service stopped")
}
