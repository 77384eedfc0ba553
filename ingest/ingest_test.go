package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	match "github.com/ordinex/venue"
	"github.com/ordinex/venue/bus"
	"github.com/ordinex/venue/protocol"
)

type staticOrderSource struct {
	payloads []*protocol.OrderPayload
	err      error
}

func (s staticOrderSource) OpenOrders(context.Context) ([]*protocol.OrderPayload, error) {
	return s.payloads, s.err
}

func payload(id int64, side string, price string, quantity int64) protocol.OrderPayload {
	return protocol.OrderPayload{
		ID:        id,
		Quantity:  quantity,
		Price:     decimal.RequireFromString(price),
		Side:      side,
		TraderID:  id,
		Timestamp: time.Now().UTC(),
	}
}

func event(action protocol.Action, order protocol.OrderPayload) *protocol.OrderEvent {
	return &protocol.OrderEvent{Action: action, Order: order}
}

func TestApplyCreateRestsOrder(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	trades, err := ing.Apply(event(protocol.ActionCreate, payload(1, "BUY", "100", 5)))
	require.NoError(t, err)
	assert.Empty(t, trades)

	resting, err := book.Order(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resting.Remaining)
}

func TestApplyCreateMatches(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	_, err := ing.Apply(event(protocol.ActionCreate, payload(1, "SELL", "100", 5)))
	require.NoError(t, err)

	trades, err := ing.Apply(event(protocol.ActionCreate, payload(2, "BUY", "100", 5)))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(2), trades[0].BuyerOrderID)
	assert.Equal(t, int64(1), trades[0].SellerOrderID)
}

func TestApplyCreateHonoursTradedQuantity(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	p := payload(1, "BUY", "100", 10)
	p.TradedQuantity = 4
	_, err := ing.Apply(event(protocol.ActionCreate, p))
	require.NoError(t, err)

	resting, err := book.Order(1)
	require.NoError(t, err)
	assert.Equal(t, int64(6), resting.Remaining)
	assert.Equal(t, int64(10), resting.Quantity)
}

func TestApplyUpdateAmendsPrice(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	_, err := ing.Apply(event(protocol.ActionCreate, payload(1, "BUY", "100", 5)))
	require.NoError(t, err)

	_, err = ing.Apply(event(protocol.ActionUpdate, payload(1, "BUY", "101", 5)))
	require.NoError(t, err)

	resting, err := book.Order(1)
	require.NoError(t, err)
	assert.True(t, resting.Price.Equal(decimal.RequireFromString("101")))
}

func TestApplyDeleteCancels(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	_, err := ing.Apply(event(protocol.ActionCreate, payload(1, "BUY", "100", 5)))
	require.NoError(t, err)

	_, err = ing.Apply(event(protocol.ActionDelete, payload(1, "BUY", "100", 5)))
	require.NoError(t, err)

	_, err = book.Order(1)
	assert.ErrorIs(t, err, match.ErrOrderNotFound)
}

func TestApplyRejectsMalformedEvents(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	_, err := ing.Apply(event(protocol.ActionCreate, payload(1, "BUY", "100", 5)))
	require.NoError(t, err)

	cases := map[string]*protocol.OrderEvent{
		"unknown action": event(protocol.Action("upsert"), payload(2, "BUY", "100", 5)),
		"missing id":     event(protocol.ActionCreate, payload(0, "BUY", "100", 5)),
		"bad side":       event(protocol.ActionCreate, payload(2, "LONG", "100", 5)),
		"zero quantity":  event(protocol.ActionCreate, payload(2, "BUY", "100", 0)),
		"zero price":     event(protocol.ActionCreate, payload(2, "BUY", "0", 5)),
		"side mismatch":  event(protocol.ActionUpdate, payload(1, "SELL", "101", 5)),
	}
	for name, evt := range cases {
		_, err := ing.Apply(evt)
		assert.ErrorIs(t, err, ErrMalformedEvent, name)
	}

	// Only the initial order rests.
	stats := book.Stats()
	assert.Equal(t, int64(1), stats.BidOrderCount)
	assert.Zero(t, stats.AskOrderCount)
}

func TestApplyUpdateUnknownOrder(t *testing.T) {
	ing := New(match.NewOrderBook(), match.NewMemoryTradeRecorder())

	_, err := ing.Apply(event(protocol.ActionUpdate, payload(42, "", "101", 5)))
	assert.ErrorIs(t, err, match.ErrOrderNotFound)
}

func TestRunDeliversTrades(t *testing.T) {
	book := match.NewOrderBook()
	recorder := match.NewMemoryTradeRecorder()
	ing := New(book, recorder)

	events := make(chan bus.Message, 4)
	for _, evt := range []*protocol.OrderEvent{
		event(protocol.ActionCreate, payload(1, "SELL", "100", 5)),
		event(protocol.ActionCreate, payload(2, "BUY", "100", 5)),
	} {
		data, err := json.Marshal(evt)
		require.NoError(t, err)
		events <- bus.Message{Subject: protocol.SubjectForAction(evt.Action), Data: data}
	}
	close(events)

	ing.Run(context.Background(), events)

	require.Equal(t, 1, recorder.Count())
	trade := recorder.Get(0)
	assert.Equal(t, int64(5), trade.Quantity)
	assert.True(t, trade.Price.Equal(decimal.RequireFromString("100")))
}

func TestRunSkipsUndecodableEvents(t *testing.T) {
	book := match.NewOrderBook()
	ing := New(book, match.NewMemoryTradeRecorder())

	events := make(chan bus.Message, 2)
	events <- bus.Message{Subject: protocol.SubjectOrderCreate, Data: []byte("{not json")}
	data, err := json.Marshal(event(protocol.ActionCreate, payload(1, "BUY", "100", 5)))
	require.NoError(t, err)
	events <- bus.Message{Subject: protocol.SubjectOrderCreate, Data: data}
	close(events)

	ing.Run(context.Background(), events)

	_, err = book.Order(1)
	assert.NoError(t, err)
}

func TestRebuild(t *testing.T) {
	book := match.NewOrderBook()
	recorder := match.NewMemoryTradeRecorder()
	ing := New(book, recorder)

	now := time.Now().UTC()
	older := payload(2, "BUY", "100", 5)
	older.Timestamp = now.Add(-time.Minute)
	newer := payload(1, "SELL", "101", 3)
	newer.Timestamp = now
	bad := payload(3, "LONG", "100", 5)

	err := ing.Rebuild(context.Background(), staticOrderSource{
		payloads: []*protocol.OrderPayload{&newer, &older, &bad},
	})
	require.NoError(t, err)

	stats := book.Stats()
	assert.Equal(t, int64(1), stats.BidOrderCount)
	assert.Equal(t, int64(1), stats.AskOrderCount)
	assert.Zero(t, recorder.Count())
}

func TestRebuildSourceError(t *testing.T) {
	ing := New(match.NewOrderBook(), match.NewMemoryTradeRecorder())

	err := ing.Rebuild(context.Background(), staticOrderSource{err: assert.AnError})
	assert.ErrorIs(t, err, assert.AnError)
}
