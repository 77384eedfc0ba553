package match

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordinex/venue/protocol"
)

func TestRenderDepthSnapshot(t *testing.T) {
	book := NewOrderBook()
	for _, order := range []*Order{
		newTestOrder(1, Buy, "100", 2),
		newTestOrder(2, Buy, "100", 3),
		newTestOrder(3, Buy, "100", 5),
		newTestOrder(4, Buy, "99", 1),
		newTestOrder(5, Sell, "101", 4),
	} {
		_, err := book.AddOrder(order)
		require.NoError(t, err)
	}

	depth, err := book.Depth(protocol.SnapshotDepthLimit)
	require.NoError(t, err)

	doc := RenderDepthSnapshot(depth)
	require.Len(t, doc.OrderBook, 3)

	assert.Equal(t, protocol.DepthSideBuy, doc.OrderBook[0].Side)
	assert.True(t, doc.OrderBook[0].Price.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, int64(10), doc.OrderBook[0].Quantity)

	assert.Equal(t, protocol.DepthSideBuy, doc.OrderBook[1].Side)
	assert.Equal(t, int64(1), doc.OrderBook[1].Quantity)

	assert.Equal(t, protocol.DepthSideSell, doc.OrderBook[2].Side)
	assert.Equal(t, int64(4), doc.OrderBook[2].Quantity)
}

func TestSnapshotPublisherRun(t *testing.T) {
	book := NewOrderBook()
	_, err := book.AddOrder(newTestOrder(1, Buy, "100", 5))
	require.NoError(t, err)

	broadcaster := NewMemoryBroadcaster()
	publisher := NewSnapshotPublisher(book, broadcaster, 5*time.Millisecond, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		publisher.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return broadcaster.Count() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	<-done

	last := broadcaster.Last()
	require.NotNil(t, last)
	require.Len(t, last.OrderBook, 1)
	assert.Equal(t, protocol.DepthSideBuy, last.OrderBook[0].Side)
	assert.Equal(t, int64(5), last.OrderBook[0].Quantity)
}

func TestSnapshotPublisherCapsLevels(t *testing.T) {
	book := NewOrderBook()
	for i := int64(1); i <= 8; i++ {
		_, err := book.AddOrder(newTestOrder(i, Sell, decimal.NewFromInt(100+i).String(), 1))
		require.NoError(t, err)
	}

	broadcaster := NewMemoryBroadcaster()
	publisher := NewSnapshotPublisher(book, broadcaster, time.Millisecond, 100)
	publisher.publishOnce()

	last := broadcaster.Last()
	require.NotNil(t, last)
	assert.Len(t, last.OrderBook, protocol.SnapshotDepthLimit)
}
