package match

import (
	"context"
	"sync"

	"github.com/ordinex/venue/protocol"
)

// TradeRecorder is the trade-recording collaborator called once per match.
// The call is synchronous but always issued after the book mutations are
// committed and outside the book's critical section: a slow or failing
// recorder cannot stall matching, and a failed call never rolls back the
// already-committed match.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, trade *Trade) (*protocol.TradeRecord, error)
}

// MemoryTradeRecorder stores trades in memory, useful for testing.
type MemoryTradeRecorder struct {
	mu     sync.RWMutex
	trades []*Trade
}

// NewMemoryTradeRecorder creates a new MemoryTradeRecorder.
func NewMemoryTradeRecorder() *MemoryTradeRecorder {
	return &MemoryTradeRecorder{
		trades: make([]*Trade, 0),
	}
}

// RecordTrade appends the trade to the in-memory slice.
func (m *MemoryTradeRecorder) RecordTrade(_ context.Context, trade *Trade) (*protocol.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := *trade
	m.trades = append(m.trades, &cpy)

	return &protocol.TradeRecord{
		ID:            int64(len(m.trades)),
		Price:         trade.Price,
		Quantity:      trade.Quantity,
		BuyerOrderID:  trade.BuyerOrderID,
		SellerOrderID: trade.SellerOrderID,
	}, nil
}

// Count returns the number of trades stored.
func (m *MemoryTradeRecorder) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trades)
}

// Get returns the trade at the specified index.
func (m *MemoryTradeRecorder) Get(index int) *Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.trades[index]
}

// Trades returns a copy of all trades stored.
func (m *MemoryTradeRecorder) Trades() []*Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trades := make([]*Trade, len(m.trades))
	copy(trades, m.trades)
	return trades
}

// DiscardTradeRecorder drops all trades, useful for benchmarking.
type DiscardTradeRecorder struct{}

// RecordTrade does nothing.
func (DiscardTradeRecorder) RecordTrade(_ context.Context, _ *Trade) (*protocol.TradeRecord, error) {
	return nil, nil
}
