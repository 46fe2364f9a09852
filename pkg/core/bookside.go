package core

import "math"

// location is the last known resting place of an order identity
type location struct {
	price     float64
	qty       int64
	restingID int64
}

// levelNode is one entry in the ascending-by-price level list
type levelNode struct {
	level *PriceLevel
	next  *levelNode
	prev  *levelNode
}

// PriceQty is one (price, aggregate quantity) pair of a depth query
type PriceQty struct {
	Price float64 `json:"price"`
	Qty   int64   `json:"qty"`
}

// Outcome describes how an event was reconciled against a side
type Outcome struct {
	// Ignored is set when the event referenced an order the side has no
	// record of and was discarded without touching the book.
	Ignored bool
	// Traded is set when the event carried an execution against a located
	// resting order, meaning the last traded price should advance.
	Traded bool
}

// BookSide holds one side's price-level index and the per-order location
// cache. Levels are kept in a doubly linked list ascending by price, with a
// map keyed by the tolerance-quantized price for direct lookup; the
// direction of "best" is a view applied by the query methods, not by the
// index. Not safe for concurrent use.
type BookSide struct {
	side      Side
	head      *levelNode // lowest price
	tail      *levelNode // highest price
	levels    map[int64]*levelNode
	locations map[int64]location
}

// NewBookSide creates an empty BookSide for the given side
func NewBookSide(side Side) (*BookSide, error) {
	if side != Bid && side != Ask {
		return nil, ErrInvalidSide
	}

	return &BookSide{
		side:      side,
		levels:    make(map[int64]*levelNode),
		locations: make(map[int64]location),
	}, nil
}

// Side returns the side this BookSide represents
func (s *BookSide) Side() Side {
	return s.side
}

// priceKey quantizes a price to the tolerance grid for map lookup
func priceKey(price float64) int64 {
	return int64(math.Round(price / PriceTolerance))
}

// node returns the level node holding the given price, or nil. Neighboring
// grid keys are probed because quantization can split two prices that are
// still within tolerance of each other.
func (s *BookSide) node(price float64) *levelNode {
	k := priceKey(price)
	for _, key := range [3]int64{k, k - 1, k + 1} {
		if n, ok := s.levels[key]; ok && SamePrice(n.level.Price(), price) {
			return n
		}
	}
	return nil
}

// Level returns the PriceLevel at the given price, or nil if none exists
func (s *BookSide) Level(price float64) *PriceLevel {
	if n := s.node(price); n != nil {
		return n.level
	}
	return nil
}

// Update reconciles one passive order event against the side. The returned
// error is reserved for index corruption (a location entry pointing at a
// level or order the book does not hold); expected feed anomalies such as a
// cancel or fill for an unknown order are absorbed and reported via Outcome.
func (s *BookSide) Update(ev *OrderEvent) (Outcome, error) {
	status := ev.Status()

	var loc location
	var found bool
	if status != StatusNew {
		loc, found = s.locations[ev.OrderID()]
		if !found {
			if status == StatusReplaced {
				// A replace for an order this side never saw: treat it as a
				// fresh resting order rather than dropping liquidity on a
				// feed gap or replay.
				status = StatusNew
			} else {
				// Cancel, fill or expire of an unknown order references
				// state that was already purged. Nothing to do.
				return Outcome{Ignored: true}, nil
			}
		}
	}

	switch status {
	case StatusNew:
		if err := s.applyNew(ev); err != nil {
			return Outcome{}, err
		}
		s.remember(ev)
		return Outcome{}, nil

	case StatusReplaced, StatusPartiallyFilled:
		if err := s.relocate(ev, loc); err != nil {
			return Outcome{}, err
		}
		s.remember(ev)
		return Outcome{Traded: status == StatusPartiallyFilled}, nil

	case StatusCanceled, StatusExpired, StatusFilled:
		if err := s.removeAt(loc); err != nil {
			return Outcome{}, err
		}
		delete(s.locations, ev.OrderID())
		return Outcome{Traded: status == StatusFilled}, nil

	default:
		return Outcome{}, ErrUnknownStatus
	}
}

// applyNew inserts a fresh resting order. A stale location for the same
// identity (a replace that raced the removal of the old order) is purged
// first so the identity never rests at two levels.
func (s *BookSide) applyNew(ev *OrderEvent) error {
	if loc, ok := s.locations[ev.OrderID()]; ok {
		if err := s.removeAt(loc); err != nil {
			return err
		}
		delete(s.locations, ev.OrderID())
	}

	return s.insert(ev)
}

// relocate moves a located order from its old level to the level for the
// event's reported price, which may be the same level with a smaller
// quantity.
func (s *BookSide) relocate(ev *OrderEvent, loc location) error {
	if err := s.removeAt(loc); err != nil {
		return err
	}

	return s.insert(ev)
}

// insert places the event's order at the level for its price, creating the
// level if absent and discarding it again if the insert left it empty.
func (s *BookSide) insert(ev *OrderEvent) error {
	n := s.node(ev.Price())
	if n == nil {
		n = s.link(NewPriceLevel(ev.Price()))
	}

	empty, err := n.level.Add(ev)
	if err != nil {
		return err
	}
	if empty {
		s.unlink(n)
	}

	return nil
}

// removeAt deletes the order identified by loc from its level, purging the
// level if it becomes empty. The location entry in the index is left to the
// caller so a failed removal keeps the index untouched.
func (s *BookSide) removeAt(loc location) error {
	n := s.node(loc.price)
	if n == nil {
		return ErrPriceMismatch
	}

	empty, err := n.level.Delete(loc.restingID, loc.qty)
	if err != nil {
		return err
	}
	if empty {
		s.unlink(n)
	}

	return nil
}

// remember writes the order's current resting place into the location index
func (s *BookSide) remember(ev *OrderEvent) {
	s.locations[ev.OrderID()] = location{
		price:     ev.Price(),
		qty:       ev.RemainingQty(),
		restingID: ev.OrderID(),
	}
}

// link inserts a new level node into the ascending list and the lookup map
func (s *BookSide) link(level *PriceLevel) *levelNode {
	n := &levelNode{level: level}
	s.levels[priceKey(level.Price())] = n

	if s.head == nil {
		s.head = n
		s.tail = n
		return n
	}

	// Walk from the head until the first level not below the new price.
	current := s.head
	for current != nil && priceLess(current.level.Price(), level.Price()) {
		current = current.next
	}

	if current == nil {
		// Highest price so far, append at the tail.
		n.prev = s.tail
		s.tail.next = n
		s.tail = n
		return n
	}

	n.next = current
	n.prev = current.prev
	if current.prev != nil {
		current.prev.next = n
	} else {
		s.head = n
	}
	current.prev = n

	return n
}

// unlink removes a level node from the list and the lookup map
func (s *BookSide) unlink(n *levelNode) {
	delete(s.levels, priceKey(n.level.Price()))

	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
}

// BestPrice returns the most favorable price of the side: the highest price
// for bids, the lowest for asks.
func (s *BookSide) BestPrice() (float64, bool) {
	top := s.TopPrices(1)
	if len(top) == 0 {
		return 0, false
	}
	return top[0].Price, true
}

// TopPrices returns up to n levels with the most favorable prices first
func (s *BookSide) TopPrices(n int) []PriceQty {
	if s.side == Bid {
		return s.descending(n)
	}
	return s.ascending(n)
}

// BottomPrices returns up to n levels with the least favorable prices first
func (s *BookSide) BottomPrices(n int) []PriceQty {
	if s.side == Bid {
		return s.ascending(n)
	}
	return s.descending(n)
}

func (s *BookSide) ascending(n int) []PriceQty {
	out := make([]PriceQty, 0, n)
	for current := s.head; current != nil && len(out) < n; current = current.next {
		out = append(out, PriceQty{Price: current.level.Price(), Qty: current.level.Qty()})
	}
	return out
}

func (s *BookSide) descending(n int) []PriceQty {
	out := make([]PriceQty, 0, n)
	for current := s.tail; current != nil && len(out) < n; current = current.prev {
		out = append(out, PriceQty{Price: current.level.Price(), Qty: current.level.Qty()})
	}
	return out
}

// OrderCount returns the number of orders resting on the side
func (s *BookSide) OrderCount() int {
	return len(s.locations)
}

// LevelCount returns the number of populated price levels on the side
func (s *BookSide) LevelCount() int {
	return len(s.levels)
}
