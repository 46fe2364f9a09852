package core

import "sort"

// PriceLevel aggregates the resting orders at one price on one side of the
// book. The level's quantity is the sum of the remaining quantities of its
// resting orders at all times.
type PriceLevel struct {
	price  float64
	qty    int64
	orders map[int64]*OrderEvent
}

// NewPriceLevel creates an empty PriceLevel at the given price
func NewPriceLevel(price float64) *PriceLevel {
	return &PriceLevel{
		price:  price,
		orders: make(map[int64]*OrderEvent),
	}
}

// Price returns the level's price
func (pl *PriceLevel) Price() float64 {
	return pl.price
}

// Qty returns the aggregate remaining quantity of the level
func (pl *PriceLevel) Qty() int64 {
	return pl.qty
}

// Size returns the number of resting orders at the level
func (pl *PriceLevel) Size() int {
	return len(pl.orders)
}

// Add inserts or overwrites the order carried by ev, keyed by order identity,
// and adds its remaining quantity to the level. Events whose status does not
// leave liquidity on the book are no-ops here; filtering happened one level
// up. Returns whether the level is empty after the attempted insert, so the
// caller can discard it. The event's price must identify this level.
func (pl *PriceLevel) Add(ev *OrderEvent) (bool, error) {
	if !SamePrice(ev.Price(), pl.price) {
		return false, ErrPriceMismatch
	}

	if ev.Status().rests() {
		pl.orders[ev.OrderID()] = ev
		pl.qty += ev.RemainingQty()
	}

	return len(pl.orders) == 0, nil
}

// Delete removes the identified resting order and subtracts oldQty from the
// level. An identity absent from the level means the caller's location index
// has diverged from the book, which is reported as ErrPriceMismatch.
// Returns whether the level is empty after the removal.
func (pl *PriceLevel) Delete(restingID, oldQty int64) (bool, error) {
	if _, ok := pl.orders[restingID]; !ok {
		return false, ErrPriceMismatch
	}

	delete(pl.orders, restingID)
	pl.qty -= oldQty

	return len(pl.orders) == 0, nil
}

// Orders returns the resting orders ranked by order identity, a proxy for
// arrival sequence.
func (pl *PriceLevel) Orders() []*OrderEvent {
	orders := make([]*OrderEvent, 0, len(pl.orders))
	for _, ev := range pl.orders {
		orders = append(orders, ev)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].OrderID() < orders[j].OrderID()
	})

	return orders
}
