package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordinex/venue/bus"
	"github.com/ordinex/venue/protocol"
)

type fakeStream struct {
	snapshots chan bus.Message
	trades    chan bus.Message
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		snapshots: make(chan bus.Message, 16),
		trades:    make(chan bus.Message, 16),
	}
}

func (f *fakeStream) Subscribe(_ context.Context, subject string, _ int) (<-chan bus.Message, error) {
	switch subject {
	case protocol.SubjectBookSnapshot:
		return f.snapshots, nil
	case protocol.SubjectTradeExecuted:
		return f.trades, nil
	default:
		return nil, fmt.Errorf("unexpected subject %q", subject)
	}
}

func dialWS(t *testing.T, httpURL, path string) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(httpURL, "http", "ws", 1) + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) protocol.DepthSnapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var snapshot protocol.DepthSnapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	return snapshot
}

func TestOrderBookFeed(t *testing.T) {
	stream := newFakeStream()
	server := NewServer(stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = server.Run(ctx) }()

	httpServer := httptest.NewServer(server.Routes())
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL, "/order-books")

	// A fresh subscriber immediately gets the current (still empty) view.
	initial := readSnapshot(t, conn)
	assert.Empty(t, initial.OrderBook)

	require.Eventually(t, func() bool { return server.books.Len() == 1 }, time.Second, time.Millisecond)

	published := protocol.DepthSnapshot{OrderBook: []protocol.DepthLevel{
		{Side: protocol.DepthSideBuy, Price: decimal.RequireFromString("100"), Quantity: 10},
	}}
	data, err := json.Marshal(published)
	require.NoError(t, err)
	stream.snapshots <- bus.Message{Subject: protocol.SubjectBookSnapshot, Data: data}

	relayed := readSnapshot(t, conn)
	require.Len(t, relayed.OrderBook, 1)
	assert.Equal(t, int64(10), relayed.OrderBook[0].Quantity)

	// A later subscriber gets the applied view as its initial state.
	late := dialWS(t, httpServer.URL, "/order-books")
	catchup := readSnapshot(t, late)
	require.Len(t, catchup.OrderBook, 1)
	assert.True(t, catchup.OrderBook[0].Price.Equal(decimal.RequireFromString("100")))
}

func TestTradeFeed(t *testing.T) {
	stream := newFakeStream()
	server := NewServer(stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = server.Run(ctx) }()

	httpServer := httptest.NewServer(server.Routes())
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL, "/trades")
	require.Eventually(t, func() bool { return server.trades.Len() == 1 }, time.Second, time.Millisecond)

	record := protocol.TradeRecord{ID: 1, Quantity: 5, Price: decimal.RequireFromString("100")}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	stream.trades <- bus.Message{Subject: protocol.SubjectTradeExecuted, Data: data}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got protocol.TradeRecord
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, int64(5), got.Quantity)
}

func TestUndecodableSnapshotIsDropped(t *testing.T) {
	stream := newFakeStream()
	server := NewServer(stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = server.Run(ctx) }()

	stream.snapshots <- bus.Message{Subject: protocol.SubjectBookSnapshot, Data: []byte("{bad")}

	// The consumer keeps running and the view stays empty.
	assert.Eventually(t, func() bool {
		return len(server.view.Snapshot().OrderBook) == 0
	}, time.Second, 10*time.Millisecond)
}
