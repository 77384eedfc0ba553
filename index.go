package match

// OrderIndex is the identity map from order id to the single resting order
// record. An order "exists" in the engine exactly when it resides here.
// The index performs no queue mutations of its own; the order book removes
// an order from the index and from its price level inside one critical
// section.
type OrderIndex struct {
	orders map[int64]*Order
}

// NewOrderIndex creates an empty index.
func NewOrderIndex() *OrderIndex {
	return &OrderIndex{
		orders: make(map[int64]*Order),
	}
}

// Insert adds an order to the index.
// Returns ErrDuplicateOrder if an order with the same id already resides.
func (idx *OrderIndex) Insert(order *Order) error {
	if _, ok := idx.orders[order.ID]; ok {
		return ErrDuplicateOrder
	}
	idx.orders[order.ID] = order
	return nil
}

// Remove detaches and returns the order with the given id.
// Returns ErrOrderNotFound if it is absent.
func (idx *OrderIndex) Remove(id int64) (*Order, error) {
	order, ok := idx.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	delete(idx.orders, id)
	return order, nil
}

// Get returns the resting order with the given id, or ErrOrderNotFound.
func (idx *OrderIndex) Get(id int64) (*Order, error) {
	order, ok := idx.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Len returns the number of resting orders.
func (idx *OrderIndex) Len() int {
	return len(idx.orders)
}
