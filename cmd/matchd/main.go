// matchd is the matching service: it rebuilds the book from the order
// service, consumes order lifecycle events from the bus, records executed
// trades and broadcasts periodic depth snapshots.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	match "github.com/ordinex/venue"
	"github.com/ordinex/venue/bus"
	"github.com/ordinex/venue/config"
	"github.com/ordinex/venue/ingest"
	"github.com/ordinex/venue/orderapi"
	"github.com/ordinex/venue/protocol"
)

// busBroadcaster publishes depth snapshots to the message bus.
type busBroadcaster struct {
	bus *bus.Bus
}

func (b busBroadcaster) BroadcastDepth(snapshot *protocol.DepthSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return b.bus.Publish(protocol.SubjectBookSnapshot, data)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	match.SetLogger(logger)

	cfg, err := config.Load("venue")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bus.Connect(cfg.Bus.URL, cfg.Bus.ConnectRetries, cfg.Bus.RetryDelay)
	if err != nil {
		logger.Error("message bus unreachable, exiting", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	client := orderapi.NewClient(cfg.Match.OrderServiceURL, cfg.Match.RequestTimeout)
	book := match.NewOrderBook()
	ingestor := ingest.New(book, client)

	if err := ingestor.Rebuild(ctx, client); err != nil {
		logger.Error("order service unreachable, exiting", "error", err)
		os.Exit(1)
	}

	events, err := b.Subscribe(ctx, protocol.SubjectOrderWildcard, cfg.Match.EventBuffer)
	if err != nil {
		logger.Error("failed to subscribe to order events", "error", err)
		os.Exit(1)
	}

	publisher := match.NewSnapshotPublisher(book, busBroadcaster{bus: b},
		cfg.Match.SnapshotInterval, cfg.Match.DepthLevels)
	go publisher.Run(ctx)

	logger.Info("matching service started", "version", match.EngineVersion)
	ingestor.Run(ctx, events)
	logger.Info("matching service stopped")
}
