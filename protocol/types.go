package protocol

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the direction of an order.
type Side int8

const (
	SideUnknown Side = 0
	SideBuy     Side = 1
	SideSell    Side = 2
)

// String renders the side the way the order service serializes it.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide decodes the side name carried by lifecycle events.
func ParseSide(s string) Side {
	switch s {
	case "BUY":
		return SideBuy
	case "SELL":
		return SideSell
	default:
		return SideUnknown
	}
}

// Order status vocabulary used by the persistence service.
const (
	StatusPending         = "PENDING"
	StatusOpen            = "OPEN"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCancelled       = "CANCELLED"
)

// Action is the lifecycle event kind published by the order service.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// OrderPayload is the order document carried inside a lifecycle event.
type OrderPayload struct {
	ID             int64           `json:"id"`
	Quantity       int64           `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Side           string          `json:"side"`
	TraderID       int64           `json:"trader_id"`
	Status         string          `json:"status,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	TradedQuantity int64           `json:"traded_quantity,omitempty"`
}

// Remaining returns the unfilled quantity the order carries into the book.
func (p *OrderPayload) Remaining() int64 {
	return p.Quantity - p.TradedQuantity
}

// OrderEvent is one lifecycle event on the order stream.
// "update" is treated as a price amendment using the new price.
type OrderEvent struct {
	Action Action       `json:"action"`
	Order  OrderPayload `json:"order"`
}

// TradeRequest is the synchronous trade-recording call made per match.
type TradeRequest struct {
	Price         decimal.Decimal `json:"price"`
	Quantity      int64           `json:"quantity"`
	BuyerOrderID  int64           `json:"buyer_order_id"`
	SellerOrderID int64           `json:"seller_order_id"`
}

// TradeRecord is the persisted trade returned by the order service.
type TradeRecord struct {
	ID                 int64           `json:"id"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int64           `json:"quantity"`
	BuyerOrderID       int64           `json:"buyer_order_id"`
	SellerOrderID      int64           `json:"seller_order_id"`
	ExecutionTimestamp time.Time       `json:"execution_timestamp"`
	UniqueID           string          `json:"unique_id"`
}

// DepthLevel is one aggregated price level in a depth snapshot.
type DepthLevel struct {
	Side     string          `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// DepthSnapshot is the periodic broadcast document relayed verbatim to all
// connected subscribers. Levels are ordered best price first per side, at
// most SnapshotDepthLimit levels per side.
type DepthSnapshot struct {
	OrderBook []DepthLevel `json:"order_book"`
}

const (
	DepthSideBuy  = "buy"
	DepthSideSell = "sell"

	// SnapshotDepthLimit caps the number of price levels per side in a
	// broadcast depth snapshot.
	SnapshotDepthLimit = 5
)

// Bus subjects for lifecycle events, depth snapshots and trade records.
const (
	SubjectOrderCreate   = "order.create"
	SubjectOrderUpdate   = "order.update"
	SubjectOrderDelete   = "order.delete"
	SubjectOrderWildcard = "order.*"
	SubjectBookSnapshot  = "book.snapshot"
	SubjectTradeExecuted = "trade.executed"
)

// SubjectForAction maps a lifecycle action to its bus subject.
func SubjectForAction(action Action) string {
	switch action {
	case ActionCreate:
		return SubjectOrderCreate
	case ActionUpdate:
		return SubjectOrderUpdate
	case ActionDelete:
		return SubjectOrderDelete
	default:
		return ""
	}
}
