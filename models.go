package match

import (
	"time"

	"github.com/ordinex/venue/protocol"
	"github.com/shopspring/decimal"
)

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

// Order is a standing intent to trade. While it rests, the order is present
// in the OrderIndex and in exactly one side queue at its current price.
type Order struct {
	ID        int64           `json:"id"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`  // Original quantity
	Remaining int64           `json:"remaining"` // Unfilled quantity, 0 < Remaining <= Quantity while resting
	TraderID  int64           `json:"trader_id"`
	Timestamp time.Time       `json:"timestamp"` // Creation time at the order service

	// ArrivalSeq is the time-priority tiebreak within a price level. It is
	// assigned when the order enters a book and reassigned on amendment,
	// because amendment forfeits time priority.
	ArrivalSeq uint64 `json:"arrival_seq"`

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

// Trade is the immutable record of one match. The price is always the
// resting (maker) order's limit price.
type Trade struct {
	Price         decimal.Decimal `json:"price"`
	Quantity      int64           `json:"quantity"`
	BuyerOrderID  int64           `json:"buyer_order_id"`
	SellerOrderID int64           `json:"seller_order_id"`
	ExecutionSeq  uint64          `json:"execution_seq"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DepthLevel is one aggregated price level: the sum of remaining quantity
// of all orders resting at the price.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity int64
}

// Depth is a transient best-first view of both sides of the book.
type Depth struct {
	Bids []DepthLevel
	Asks []DepthLevel
}

// BookStats contains usage statistics for the order book.
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}
