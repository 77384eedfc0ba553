// socketd is the socket service: it relays depth snapshots and trade
// records from the message bus to websocket subscribers.
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
	"github.com/ordinex/venue/relay"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("venue")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	b, err := bus.Connect(cfg.Bus.URL, cfg.Bus.ConnectRetries, cfg.Bus.RetryDelay)
	if err != nil {
		logger.Error("message bus unreachable, exiting", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	server := relay.NewServer(b)
	httpServer := &http.Server{
		Addr:    cfg.SocketService.ListenAddr,
		Handler: server.Routes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("bus consumer failed", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("socket service started", "addr", cfg.SocketService.ListenAddr)
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
	logger.Info("socket service stopped")
}
