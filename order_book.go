package match

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderBook is the live limit order book for a single instrument: both side
// queues plus the identity index, guarded by one read/write critical
// section. Every mutating operation (a full match cascade, an amendment, a
// cancellation) is one atomic unit under the write lock; depth reads take
// the read lock and may run concurrently with each other.
//
// No operation blocks on network or disk while holding the lock. Mutating
// operations return the executed trades so callers can deliver them to the
// trade-recording collaborator after the book state is committed.
type OrderBook struct {
	mu       sync.RWMutex
	bidQueue *queue
	askQueue *queue
	index    *OrderIndex

	arrivalSeq uint64
	execSeq    uint64
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bidQueue: NewBuyerQueue(),
		askQueue: NewSellerQueue(),
		index:    NewOrderIndex(),
	}
}

// AddOrder runs the matching cascade for a newly arrived order and rests
// any unmatched remainder. Returns the executed trades in execution order.
// Returns ErrDuplicateOrder if the id already rests in the book and
// ErrInvalidParam if the order is malformed.
func (book *OrderBook) AddOrder(order *Order) ([]*Trade, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	if _, err := book.index.Get(order.ID); err == nil {
		return nil, ErrDuplicateOrder
	}

	return book.submitLocked(order), nil
}

// AmendOrder changes the price of a still-resting order. The order loses
// its queue position: it is removed, given a fresh arrival sequence, and
// re-enters the matching cascade as a taker, so an amendment that crosses
// can trigger new trades immediately.
// Returns ErrOrderNotFound if the order no longer rests.
func (book *OrderBook) AmendOrder(id int64, newPrice decimal.Decimal) ([]*Trade, error) {
	if newPrice.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidParam
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	order, err := book.index.Get(id)
	if err != nil {
		return nil, err
	}
	if order.Remaining <= 0 {
		return nil, ErrInvalidState
	}

	book.detachLocked(order)
	order.Price = newPrice

	return book.submitLocked(order), nil
}

// CancelOrder removes an order from the index and its price level. No
// trades are emitted. Returns ErrOrderNotFound if the id is absent; the
// book state is untouched in that case.
func (book *OrderBook) CancelOrder(id int64) error {
	book.mu.Lock()
	defer book.mu.Unlock()

	order, err := book.index.Get(id)
	if err != nil {
		return err
	}

	book.detachLocked(order)
	return nil
}

// Order returns a copy of the resting order with the given id.
func (book *OrderBook) Order(id int64) (Order, error) {
	book.mu.RLock()
	defer book.mu.RUnlock()

	order, err := book.index.Get(id)
	if err != nil {
		return Order{}, err
	}

	cpy := *order
	cpy.next = nil
	cpy.prev = nil
	return cpy, nil
}

// Depth returns up to limit aggregated price levels per side, best first.
// The read lock guarantees a snapshot never observes a level mid-mutation.
func (book *OrderBook) Depth(limit int) (*Depth, error) {
	if limit <= 0 {
		return nil, ErrInvalidParam
	}

	book.mu.RLock()
	defer book.mu.RUnlock()

	return &Depth{
		Bids: book.bidQueue.depth(limit),
		Asks: book.askQueue.depth(limit),
	}, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats() *BookStats {
	book.mu.RLock()
	defer book.mu.RUnlock()

	return &BookStats{
		AskDepthCount: book.askQueue.depthCount(),
		AskOrderCount: book.askQueue.orderCount(),
		BidDepthCount: book.bidQueue.depthCount(),
		BidOrderCount: book.bidQueue.orderCount(),
	}
}

// RestingOrders copies every resting order out in priority order,
// bids first.
func (book *OrderBook) RestingOrders() []Order {
	book.mu.RLock()
	defer book.mu.RUnlock()

	orders := book.bidQueue.toSnapshot()
	return append(orders, book.askQueue.toSnapshot()...)
}

// Rebuild replays a pull snapshot of open orders through the normal
// matching path in arrival order, rebuilding the book from empty. A
// consistent upstream snapshot rests without crossing, but any trades the
// replay does produce are returned for delivery.
func (book *OrderBook) Rebuild(orders []*Order) ([]*Trade, error) {
	sorted := make([]*Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	book.mu.Lock()
	defer book.mu.Unlock()

	book.bidQueue = NewBuyerQueue()
	book.askQueue = NewSellerQueue()
	book.index = NewOrderIndex()

	var trades []*Trade
	for _, order := range sorted {
		if err := validateOrder(order); err != nil {
			return trades, err
		}
		if _, err := book.index.Get(order.ID); err == nil {
			return trades, ErrDuplicateOrder
		}
		trades = append(trades, book.submitLocked(order)...)
	}

	return trades, nil
}

// submitLocked crosses the taker against the opposite queue and rests any
// remainder with a fresh arrival sequence. Caller holds the write lock.
func (book *OrderBook) submitLocked(taker *Order) []*Trade {
	trades := book.matchLocked(taker)

	if taker.Remaining > 0 {
		book.arrivalSeq++
		taker.ArrivalSeq = book.arrivalSeq
		myQueue := book.bidQueue
		if taker.Side == Sell {
			myQueue = book.askQueue
		}
		myQueue.insertOrder(taker, false)
		// Insert cannot fail: duplicate ids were rejected up front and
		// detached orders re-enter through this same path.
		_ = book.index.Insert(taker)
	}

	return trades
}

// matchLocked is the continuous matching cascade for one taker. Price
// priority first, then strict FIFO within a level; the maker sets the
// trade price. Fully filled makers leave both structures before the next
// iteration, partially filled makers rejoin the head of their level.
func (book *OrderBook) matchLocked(taker *Order) []*Trade {
	targetQueue := book.askQueue
	if taker.Side == Sell {
		targetQueue = book.bidQueue
	}

	var trades []*Trade
	now := time.Now().UTC()

	for taker.Remaining > 0 {
		maker := targetQueue.peekHeadOrder()
		if maker == nil {
			break
		}

		if taker.Side == Buy && taker.Price.LessThan(maker.Price) ||
			taker.Side == Sell && taker.Price.GreaterThan(maker.Price) {
			break
		}

		// Price crosses; pop the maker for matching.
		maker = targetQueue.popHeadOrder()

		matched := taker.Remaining
		if maker.Remaining < matched {
			matched = maker.Remaining
		}
		taker.Remaining -= matched
		maker.Remaining -= matched

		book.execSeq++
		trade := &Trade{
			Price:        maker.Price,
			Quantity:     matched,
			ExecutionSeq: book.execSeq,
			CreatedAt:    now,
		}
		if taker.Side == Buy {
			trade.BuyerOrderID = taker.ID
			trade.SellerOrderID = maker.ID
		} else {
			trade.BuyerOrderID = maker.ID
			trade.SellerOrderID = taker.ID
		}
		trades = append(trades, trade)

		if maker.Remaining > 0 {
			// Partially filled maker keeps its time priority.
			targetQueue.insertOrder(maker, true)
		} else {
			_, _ = book.index.Remove(maker.ID)
		}
	}

	return trades
}

// detachLocked removes an order from its side queue and from the index.
// Caller holds the write lock and has verified the order rests.
func (book *OrderBook) detachLocked(order *Order) {
	myQueue := book.bidQueue
	if order.Side == Sell {
		myQueue = book.askQueue
	}
	myQueue.removeOrder(order.ID)
	_, _ = book.index.Remove(order.ID)
}

func validateOrder(order *Order) error {
	if order == nil || order.ID == 0 {
		return ErrInvalidParam
	}
	if order.Side != Buy && order.Side != Sell {
		return ErrInvalidParam
	}
	if order.Price.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidParam
	}
	if order.Quantity <= 0 || order.Remaining <= 0 || order.Remaining > order.Quantity {
		return ErrInvalidParam
	}
	return nil
}
