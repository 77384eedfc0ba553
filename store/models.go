package store

import (
	"time"

	"github.com/ordinex/venue/protocol"
	"github.com/shopspring/decimal"
)

// Order is the persisted order row. Cancellation is a soft delete: the row
// keeps its fill history and is excluded from open-order queries.
type Order struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Quantity       int64           `json:"quantity"`
	Price          decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	Side           string          `gorm:"size:8;index" json:"side"`
	TraderID       int64           `gorm:"index" json:"trader_id"`
	Status         string          `gorm:"size:20;index" json:"status"`
	TradedQuantity int64           `json:"traded_quantity"`
	Timestamp      time.Time       `gorm:"index" json:"timestamp"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.TradedQuantity
}

// Open reports whether the order still has unfilled quantity and has not
// been cancelled.
func (o *Order) Open() bool {
	return o.Status != protocol.StatusCancelled && o.Status != protocol.StatusFilled
}

// Payload renders the row as the order document carried by lifecycle
// events and the open-orders endpoint.
func (o *Order) Payload() *protocol.OrderPayload {
	return &protocol.OrderPayload{
		ID:             o.ID,
		Quantity:       o.Quantity,
		Price:          o.Price,
		Side:           o.Side,
		TraderID:       o.TraderID,
		Status:         o.Status,
		Timestamp:      o.Timestamp,
		TradedQuantity: o.TradedQuantity,
	}
}

// Trade is the persisted record of one execution reported by the matching
// service.
type Trade struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Price              decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	Quantity           int64           `json:"quantity"`
	BuyerOrderID       int64           `gorm:"index" json:"buyer_order_id"`
	SellerOrderID      int64           `gorm:"index" json:"seller_order_id"`
	ExecutionTimestamp time.Time       `json:"execution_timestamp"`
	UniqueID           string          `gorm:"size:32;uniqueIndex" json:"unique_id"`
	CreatedAt          time.Time       `json:"-"`
}

func (Trade) TableName() string {
	return "trades"
}

// Record renders the row as the wire document returned to the matching
// service and relayed to trade-feed subscribers.
func (t *Trade) Record() *protocol.TradeRecord {
	return &protocol.TradeRecord{
		ID:                 t.ID,
		Price:              t.Price,
		Quantity:           t.Quantity,
		BuyerOrderID:       t.BuyerOrderID,
		SellerOrderID:      t.SellerOrderID,
		ExecutionTimestamp: t.ExecutionTimestamp,
		UniqueID:           t.UniqueID,
	}
}

// User is a trader account. The venue does not authenticate; the table
// exists so orders can reference their owner.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:64" json:"name"`
	Email     string    `gorm:"size:128;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// OrderStatus is the per-order execution summary returned by the status
// endpoint.
type OrderStatus struct {
	ID                 int64           `json:"id"`
	OrderPrice         decimal.Decimal `json:"order_price"`
	OrderQuantity      int64           `json:"order_quantity"`
	AverageTradedPrice decimal.Decimal `json:"average_traded_price"`
	TradedQuantity     int64           `json:"traded_quantity"`
	OrderAlive         bool            `json:"order_alive"`
}
