// Package ingest decodes external order lifecycle events and applies them
// to the matching engine. Malformed events are rejected and logged without
// partially mutating engine state; each event is applied or rejected as a
// whole.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	match "github.com/ordinex/venue"
	"github.com/ordinex/venue/bus"
	"github.com/ordinex/venue/protocol"
)

// ErrMalformedEvent reports a lifecycle event that failed validation
// before it reached the engine.
var ErrMalformedEvent = errors.New("lifecycle event is malformed")

// OpenOrderSource supplies the pull snapshot of currently-open orders used
// to rebuild the book at startup.
type OpenOrderSource interface {
	OpenOrders(ctx context.Context) ([]*protocol.OrderPayload, error)
}

// Ingestor applies decoded lifecycle events to one order book and forwards
// the resulting trades to the trade recorder. Trades are delivered after
// the book mutations are committed; a delivery failure is surfaced in the
// log for out-of-band reconciliation and never rolls back the match.
type Ingestor struct {
	book       *match.OrderBook
	recorder   match.TradeRecorder
	serializer protocol.Serializer
}

// New creates an Ingestor for the given book and recorder.
func New(book *match.OrderBook, recorder match.TradeRecorder) *Ingestor {
	return &Ingestor{
		book:       book,
		recorder:   recorder,
		serializer: protocol.DefaultJSONSerializer{},
	}
}

// Rebuild pulls the open-order snapshot and replays it through the normal
// matching path in arrival order, rebuilding the book from empty.
func (ing *Ingestor) Rebuild(ctx context.Context, src OpenOrderSource) error {
	payloads, err := src.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	orders := make([]*match.Order, 0, len(payloads))
	for _, payload := range payloads {
		order, err := orderFromPayload(payload)
		if err != nil {
			slog.Warn("skipping malformed open order", "order_id", payload.ID, "error", err)
			continue
		}
		orders = append(orders, order)
	}

	trades, err := ing.book.Rebuild(orders)
	ing.deliver(ctx, trades)
	if err != nil {
		return fmt.Errorf("rebuild order book: %w", err)
	}

	slog.Info("order book rebuilt", "orders", len(orders), "trades", len(trades))
	return nil
}

// Run consumes lifecycle events until the context is cancelled or the
// channel closes. Rejected events never stop the loop.
func (ing *Ingestor) Run(ctx context.Context, events <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			ing.handle(ctx, msg.Data)
		}
	}
}

func (ing *Ingestor) handle(ctx context.Context, data []byte) {
	var event protocol.OrderEvent
	if err := ing.serializer.Unmarshal(data, &event); err != nil {
		slog.Warn("rejecting undecodable lifecycle event", "error", err)
		return
	}

	trades, err := ing.Apply(&event)
	if err != nil {
		slog.Warn("rejecting lifecycle event",
			"action", event.Action, "order_id", event.Order.ID, "error", err)
		return
	}

	ing.deliver(ctx, trades)
}

// Apply validates one decoded event and applies it to the book, returning
// any executed trades. The book is untouched when an error is returned.
func (ing *Ingestor) Apply(event *protocol.OrderEvent) ([]*match.Trade, error) {
	if err := ing.validate(event); err != nil {
		return nil, err
	}

	switch event.Action {
	case protocol.ActionCreate:
		order, err := orderFromPayload(&event.Order)
		if err != nil {
			return nil, err
		}
		return ing.book.AddOrder(order)
	case protocol.ActionUpdate:
		return ing.book.AmendOrder(event.Order.ID, event.Order.Price)
	case protocol.ActionDelete:
		return nil, ing.book.CancelOrder(event.Order.ID)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, event.Action)
	}
}

func (ing *Ingestor) validate(event *protocol.OrderEvent) error {
	switch event.Action {
	case protocol.ActionCreate, protocol.ActionUpdate, protocol.ActionDelete:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, event.Action)
	}

	if event.Order.ID == 0 {
		return fmt.Errorf("%w: missing order id", ErrMalformedEvent)
	}

	if event.Action == protocol.ActionCreate || event.Action == protocol.ActionUpdate {
		if !event.Order.Price.IsPositive() {
			return fmt.Errorf("%w: price must be positive", ErrMalformedEvent)
		}
	}

	if event.Action == protocol.ActionCreate {
		if protocol.ParseSide(event.Order.Side) == protocol.SideUnknown {
			return fmt.Errorf("%w: unknown side %q", ErrMalformedEvent, event.Order.Side)
		}
		if event.Order.Remaining() <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrMalformedEvent)
		}
	}

	// Amendments and cancellations may carry the full order document;
	// reject events whose side contradicts the resting order.
	if event.Action != protocol.ActionCreate && event.Order.Side != "" {
		resting, err := ing.book.Order(event.Order.ID)
		if err == nil && protocol.ParseSide(event.Order.Side) != resting.Side {
			return fmt.Errorf("%w: side %q does not match resting order", ErrMalformedEvent, event.Order.Side)
		}
	}

	return nil
}

func (ing *Ingestor) deliver(ctx context.Context, trades []*match.Trade) {
	for _, trade := range trades {
		if _, err := ing.recorder.RecordTrade(ctx, trade); err != nil {
			slog.Error("trade delivery failed, match remains authoritative",
				"buyer_order_id", trade.BuyerOrderID,
				"seller_order_id", trade.SellerOrderID,
				"quantity", trade.Quantity,
				"error", err)
		}
	}
}

func orderFromPayload(payload *protocol.OrderPayload) (*match.Order, error) {
	side := protocol.ParseSide(payload.Side)
	if side == protocol.SideUnknown {
		return nil, fmt.Errorf("%w: unknown side %q", ErrMalformedEvent, payload.Side)
	}
	if payload.ID == 0 {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedEvent)
	}
	if payload.Remaining() <= 0 {
		return nil, fmt.Errorf("%w: order has no remaining quantity", ErrMalformedEvent)
	}

	return &match.Order{
		ID:        payload.ID,
		Side:      side,
		Price:     payload.Price,
		Quantity:  payload.Quantity,
		Remaining: payload.Remaining(),
		TraderID:  payload.TraderID,
		Timestamp: payload.Timestamp,
	}, nil
}
