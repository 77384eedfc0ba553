// Package store is the persistence layer of the order service, backed by
// MySQL through gorm.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/ordinex/venue/protocol"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrOrderNotFound reports a reference to an order id that does not
	// exist or has been cancelled.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderFinal reports a mutation attempted on a filled or cancelled
	// order.
	ErrOrderFinal = errors.New("order is already in a final state")
	// ErrInvalidFill reports a trade whose quantity exceeds what either
	// participating order still has unfilled.
	ErrInvalidFill = errors.New("trade quantity exceeds open quantity")
)

// Store wraps the database handle with the venue's order and trade
// operations.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL and returns a Store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle, useful for tests running against
// an alternative driver.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&User{}, &Order{}, &Trade{})
}

// SeedUsers inserts a handful of trader accounts when the table is empty,
// so a fresh deployment has owners for incoming orders.
func (s *Store) SeedUsers() error {
	var count int64
	if err := s.db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	users := []User{
		{Name: "Alice Trader", Email: "alice@example.com"},
		{Name: "Bob Trader", Email: "bob@example.com"},
		{Name: "Carol Trader", Email: "carol@example.com"},
	}
	return s.db.Create(&users).Error
}

// CreateOrder persists a new order with PENDING status and returns the row
// with its assigned id.
func (s *Store) CreateOrder(quantity int64, price decimal.Decimal, side string, traderID int64) (*Order, error) {
	order := &Order{
		Quantity:  quantity,
		Price:     price,
		Side:      side,
		TraderID:  traderID,
		Status:    protocol.StatusPending,
		Timestamp: time.Now().UTC(),
	}
	if err := s.db.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// Order returns one order row by id, cancelled rows included.
func (s *Store) Order(id int64) (*Order, error) {
	var order Order
	if err := s.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// OrderStatus returns the execution summary for one order: its original
// terms, how much has traded, the volume-weighted average traded price and
// whether the order is still alive.
func (s *Store) OrderStatus(id int64) (*OrderStatus, error) {
	order, err := s.Order(id)
	if err != nil {
		return nil, err
	}

	avg, err := s.averageTradedPrice(id)
	if err != nil {
		return nil, err
	}

	return &OrderStatus{
		ID:                 order.ID,
		OrderPrice:         order.Price,
		OrderQuantity:      order.Quantity,
		AverageTradedPrice: avg,
		TradedQuantity:     order.TradedQuantity,
		OrderAlive:         order.Open(),
	}, nil
}

func (s *Store) averageTradedPrice(orderID int64) (decimal.Decimal, error) {
	var trades []Trade
	err := s.db.Where("buyer_order_id = ? OR seller_order_id = ?", orderID, orderID).Find(&trades).Error
	if err != nil {
		return decimal.Zero, err
	}

	var notional decimal.Decimal
	var volume int64
	for _, t := range trades {
		notional = notional.Add(t.Price.Mul(decimal.NewFromInt(t.Quantity)))
		volume += t.Quantity
	}
	if volume == 0 {
		return decimal.Zero, nil
	}
	return notional.Div(decimal.NewFromInt(volume)), nil
}

// Orders returns all orders, newest first.
func (s *Store) Orders() ([]*Order, error) {
	var orders []*Order
	if err := s.db.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// OpenOrders returns every order that still has unfilled quantity and has
// not been cancelled, oldest first so the matching service can replay them
// in arrival order.
func (s *Store) OpenOrders() ([]*Order, error) {
	var orders []*Order
	err := s.db.
		Where("status NOT IN ?", []string{protocol.StatusCancelled, protocol.StatusFilled}).
		Order("timestamp ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// AmendOrderPrice changes the limit price of an open order. Quantity and
// side are immutable; filled or cancelled orders cannot be amended.
func (s *Store) AmendOrderPrice(id int64, price decimal.Decimal) (*Order, error) {
	order, err := s.Order(id)
	if err != nil {
		return nil, err
	}
	if !order.Open() {
		return nil, ErrOrderFinal
	}

	order.Price = price
	if err := s.db.Model(order).Update("price", price).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder marks an open order CANCELLED. Cancelling an already-final
// order returns ErrOrderFinal.
func (s *Store) CancelOrder(id int64) (*Order, error) {
	order, err := s.Order(id)
	if err != nil {
		return nil, err
	}
	if !order.Open() {
		return nil, ErrOrderFinal
	}

	order.Status = protocol.StatusCancelled
	if err := s.db.Model(order).Update("status", protocol.StatusCancelled).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateTrade persists one executed trade and applies the fill to both
// participating orders in a single transaction.
func (s *Store) CreateTrade(req *protocol.TradeRequest) (*Trade, error) {
	trade := &Trade{
		Price:              req.Price,
		Quantity:           req.Quantity,
		BuyerOrderID:       req.BuyerOrderID,
		SellerOrderID:      req.SellerOrderID,
		ExecutionTimestamp: time.Now().UTC(),
		UniqueID:           xid.New().String(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		if err := applyFill(tx, req.BuyerOrderID, req.Quantity); err != nil {
			return err
		}
		return applyFill(tx, req.SellerOrderID, req.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func applyFill(tx *gorm.DB, orderID, quantity int64) error {
	var order Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return err
	}
	if quantity > order.Remaining() {
		return fmt.Errorf("%w: order %d has %d open, fill is %d",
			ErrInvalidFill, orderID, order.Remaining(), quantity)
	}

	order.TradedQuantity += quantity
	if order.TradedQuantity == order.Quantity {
		order.Status = protocol.StatusFilled
	} else {
		order.Status = protocol.StatusPartiallyFilled
	}

	return tx.Model(&order).
		Updates(map[string]any{"traded_quantity": order.TradedQuantity, "status": order.Status}).Error
}

// Trades returns all trades, newest first.
func (s *Store) Trades() ([]*Trade, error) {
	var trades []*Trade
	if err := s.db.Order("id DESC").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}
