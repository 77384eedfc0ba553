package match

import (
	"context"
	"time"

	"github.com/ordinex/venue/protocol"
)

// DefaultSnapshotInterval is the publication period used when none is
// configured.
const DefaultSnapshotInterval = time.Second

// SnapshotPublisher periodically renders the top price levels of both
// sides and hands the document to the broadcast collaborator. The book is
// only touched under its read lock; the broadcast itself happens with no
// lock held, so a slow or failing collaborator is isolated here and never
// stalls matching. Ticks missed while a broadcast is in flight are
// coalesced by the ticker.
type SnapshotPublisher struct {
	book        *OrderBook
	broadcaster Broadcaster
	interval    time.Duration
	levels      int
}

// NewSnapshotPublisher creates a publisher for the given book.
func NewSnapshotPublisher(book *OrderBook, broadcaster Broadcaster, interval time.Duration, levels int) *SnapshotPublisher {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	if levels <= 0 || levels > protocol.SnapshotDepthLimit {
		levels = protocol.SnapshotDepthLimit
	}
	return &SnapshotPublisher{
		book:        book,
		broadcaster: broadcaster,
		interval:    interval,
		levels:      levels,
	}
}

// Run publishes snapshots until the context is cancelled.
func (p *SnapshotPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce()
		}
	}
}

func (p *SnapshotPublisher) publishOnce() {
	depth, err := p.book.Depth(p.levels)
	if err != nil {
		logger.Error("depth read failed", "error", err)
		return
	}

	if err := p.broadcaster.BroadcastDepth(RenderDepthSnapshot(depth)); err != nil {
		logger.Error("depth broadcast failed", "error", err)
	}
}

// RenderDepthSnapshot converts an engine depth view into the broadcast
// document: buy levels best (highest) first, then sell levels best
// (lowest) first.
func RenderDepthSnapshot(depth *Depth) *protocol.DepthSnapshot {
	doc := &protocol.DepthSnapshot{
		OrderBook: make([]protocol.DepthLevel, 0, len(depth.Bids)+len(depth.Asks)),
	}

	for _, level := range depth.Bids {
		doc.OrderBook = append(doc.OrderBook, protocol.DepthLevel{
			Side:     protocol.DepthSideBuy,
			Price:    level.Price,
			Quantity: level.Quantity,
		})
	}
	for _, level := range depth.Asks {
		doc.OrderBook = append(doc.OrderBook, protocol.DepthLevel{
			Side:     protocol.DepthSideSell,
			Price:    level.Price,
			Quantity: level.Quantity,
		})
	}

	return doc
}
