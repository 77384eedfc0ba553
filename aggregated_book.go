package match

import (
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/ordinex/venue/protocol"
	"github.com/shopspring/decimal"
)

// AggregatedBook maintains a simplified view of the order book, tracking
// only price levels and their aggregated quantities. It is designed for
// downstream services that rebuild display state from the periodic depth
// snapshots arriving over the message bus, e.g. to hand the current book
// to a freshly connected subscriber.
type AggregatedBook struct {
	mu  sync.RWMutex
	bid *treemap.TreeMap[decimal.Decimal, int64]
	ask *treemap.TreeMap[decimal.Decimal, int64]
}

// NewAggregatedBook creates a new AggregatedBook with empty sides.
// Bids iterate highest price first, asks lowest price first.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		bid: treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
			return a.GreaterThan(b)
		}),
		ask: treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
	}
}

// Apply replaces the view with the contents of a freshly published depth
// snapshot. Snapshots are complete top-of-book documents, not deltas, so
// the previous state is discarded.
func (ab *AggregatedBook) Apply(snapshot *protocol.DepthSnapshot) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.bid.Clear()
	ab.ask.Clear()

	for _, level := range snapshot.OrderBook {
		switch level.Side {
		case protocol.DepthSideBuy:
			ab.bid.Set(level.Price, level.Quantity)
		case protocol.DepthSideSell:
			ab.ask.Set(level.Price, level.Quantity)
		}
	}
}

// Depth returns the aggregated quantity at a price level for the given
// side, or zero if the level is not part of the view.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) int64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	tree := ab.bid
	if side == Sell {
		tree = ab.ask
	}
	qty, _ := tree.Get(price)
	return qty
}

// Snapshot renders the current view back into a broadcast document,
// best price first per side.
func (ab *AggregatedBook) Snapshot() *protocol.DepthSnapshot {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	doc := &protocol.DepthSnapshot{
		OrderBook: make([]protocol.DepthLevel, 0, ab.bid.Len()+ab.ask.Len()),
	}

	for it := ab.bid.Iterator(); it.Valid(); it.Next() {
		doc.OrderBook = append(doc.OrderBook, protocol.DepthLevel{
			Side:     protocol.DepthSideBuy,
			Price:    it.Key(),
			Quantity: it.Value(),
		})
	}
	for it := ab.ask.Iterator(); it.Valid(); it.Next() {
		doc.OrderBook = append(doc.OrderBook, protocol.DepthLevel{
			Side:     protocol.DepthSideSell,
			Price:    it.Key(),
			Quantity: it.Value(),
		})
	}

	return doc
}
