package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceUnit is the set of orders resting at one price, kept in strict FIFO
// order by arrival sequence. The unit is deleted the moment it empties.
type priceUnit struct {
	totalSize int64
	head      *Order
	tail      *Order
	count     int64
}

// queue maintains one side of the book: price levels ordered best price
// first, plus an id index so a specific order can be removed from the
// middle of a level without disturbing the rest.
type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	orders      map[int64]*Order
}

// NewBuyerQueue creates a new queue for buy orders (bids).
// The levels are sorted by price in descending order (highest price first).
func NewBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d2.Cmp(d1)
		})),
		orders: make(map[int64]*Order),
	}
}

// NewSellerQueue creates a new queue for sell orders (asks).
// The levels are sorted by price in ascending order (lowest price first).
func NewSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d1.Cmp(d2)
		})),
		orders: make(map[int64]*Order),
	}
}

// order finds an order by its id.
func (q *queue) order(id int64) *Order {
	return q.orders[id]
}

// bestPrice returns the top-of-book price, or false if the side is empty.
func (q *queue) bestPrice() (decimal.Decimal, bool) {
	el := q.depthList.Front()
	if el == nil {
		return decimal.Decimal{}, false
	}
	price, _ := el.Key().(decimal.Decimal)
	return price, true
}

// insertOrder inserts an order into the level at its price, creating the
// level if absent. Level lookup goes through the skip list comparator, so
// numerically equal decimals land on the same level regardless of their
// representation. isFront re-attaches a partially filled maker at the head
// of its level so it keeps time priority.
func (q *queue) insertOrder(order *Order, isFront bool) {
	el := q.depthList.Get(order.Price)
	if el != nil {
		unit, _ := el.Value.(*priceUnit)
		if isFront {
			order.next = unit.head
			order.prev = nil
			if unit.head != nil {
				unit.head.prev = order
			}
			unit.head = order
			if unit.tail == nil {
				unit.tail = order
			}
		} else {
			order.prev = unit.tail
			order.next = nil
			if unit.tail != nil {
				unit.tail.next = order
			}
			unit.tail = order
			if unit.head == nil {
				unit.head = order
			}
		}

		unit.totalSize += order.Remaining
		unit.count++
	} else {
		unit := &priceUnit{
			head:      order,
			tail:      order,
			totalSize: order.Remaining,
			count:     1,
		}
		order.next = nil
		order.prev = nil

		q.depthList.Set(order.Price, unit)
		q.depths++
	}

	q.orders[order.ID] = order
	q.totalOrders++
}

// removeOrder removes a specific order from wherever it rests, locating its
// level via the order's recorded price. The relative order of the remaining
// entries is untouched. Returns false if the order is not in this queue.
func (q *queue) removeOrder(id int64) bool {
	order, ok := q.orders[id]
	if !ok {
		return false
	}

	el := q.depthList.Get(order.Price)
	if el == nil {
		return false
	}
	unit, _ := el.Value.(*priceUnit)

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	unit.totalSize -= order.Remaining
	unit.count--
	delete(q.orders, id)
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(el)
		q.depths--
	}

	return true
}

// peekHeadOrder returns the earliest order at the best price without
// removing it.
func (q *queue) peekHeadOrder() *Order {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// popHeadOrder removes and returns the earliest order at the best price.
func (q *queue) popHeadOrder() *Order {
	ord := q.peekHeadOrder()

	if ord != nil {
		q.removeOrder(ord.ID)
	}

	return ord
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// depth returns up to limit aggregated levels, best price first.
func (q *queue) depth(limit int) []DepthLevel {
	result := make([]DepthLevel, 0, limit)

	el := q.depthList.Front()
	for i := 0; i < limit && el != nil; i++ {
		unit, _ := el.Value.(*priceUnit)
		price, _ := el.Key().(decimal.Decimal)
		result = append(result, DepthLevel{
			Price:    price,
			Quantity: unit.totalSize,
		})
		el = el.Next()
	}

	return result
}

// toSnapshot walks the queue in priority order and copies every resting
// order out.
func (q *queue) toSnapshot() []Order {
	snapshots := make([]Order, 0, q.totalOrders)

	elem := q.depthList.Front()
	for elem != nil {
		unit := elem.Value.(*priceUnit)

		order := unit.head
		for order != nil {
			cpy := *order
			cpy.next = nil
			cpy.prev = nil
			snapshots = append(snapshots, cpy)
			order = order.next
		}

		elem = elem.Next()
	}

	return snapshots
}
