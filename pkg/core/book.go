package core

// DepthRow is one row of the joined bid/ask depth table. A row is padded
// with a missing side when one side has fewer populated levels than the
// other.
type DepthRow struct {
	BidQty   int64   `json:"bidQty"`
	BidPrice float64 `json:"bidPrice"`
	HasBid   bool    `json:"hasBid"`
	AskPrice float64 `json:"askPrice"`
	AskQty   int64   `json:"askQty"`
	HasAsk   bool    `json:"hasAsk"`
}

// Stats summarizes the book's resting orders and populated price levels
type Stats struct {
	BidOrders int `json:"bidOrders"`
	AskOrders int `json:"askOrders"`
	BidLevels int `json:"bidLevels"`
	AskLevels int `json:"askLevels"`
}

// Book is a live limit order book for a single instrument, reflecting the
// authoritative state reported by an upstream feed. It does not match or
// execute orders. Not safe for concurrent use; a host embedding it in a
// concurrent process must serialize access per instrument.
type Book struct {
	instrument     string
	bid            *BookSide
	ask            *BookSide
	lastTradePrice float64
	hasLastTrade   bool
	maxOrderID     int64
}

// NewBook creates an empty Book for the given instrument
func NewBook(instrument string) *Book {
	bid, _ := NewBookSide(Bid)
	ask, _ := NewBookSide(Ask)

	return &Book{
		instrument: instrument,
		bid:        bid,
		ask:        ask,
	}
}

// Instrument returns the instrument this book reflects
func (b *Book) Instrument() string {
	return b.instrument
}

// Update applies one inbound event to the book. The boolean reports whether
// the event was applied or intentionally ignored; events with an
// unrecognized side return false without mutating either side. A non-nil
// error means the location index and the level index have diverged and the
// book can no longer be trusted.
func (b *Book) Update(ev *OrderEvent) (bool, error) {
	// High-water mark over every identity ever seen, including events that
	// are ignored below.
	if ev.OrderID() > b.maxOrderID {
		b.maxOrderID = ev.OrderID()
	}

	// Aggressive events describe the incoming side of a trade; only the
	// passive resting side is reflected in the book.
	if ev.IsAggressor() {
		return true, nil
	}

	var side *BookSide
	switch ev.Side() {
	case Bid:
		side = b.bid
	case Ask:
		side = b.ask
	default:
		return false, nil
	}

	out, err := side.Update(ev)
	if err != nil {
		return false, err
	}

	if out.Traded {
		b.lastTradePrice = ev.Price()
		b.hasLastTrade = true
	}

	return true, nil
}

// Side returns the requested BookSide, or nil for an unrecognized side
func (b *Book) Side(side Side) *BookSide {
	switch side {
	case Bid:
		return b.bid
	case Ask:
		return b.ask
	default:
		return nil
	}
}

// BestPrice returns the top-of-book price for the side
func (b *Book) BestPrice(side Side) (float64, bool) {
	s := b.Side(side)
	if s == nil {
		return 0, false
	}
	return s.BestPrice()
}

// LevelAt returns the price level at the given price, or nil if none exists
func (b *Book) LevelAt(side Side, price float64) *PriceLevel {
	s := b.Side(side)
	if s == nil {
		return nil
	}
	return s.Level(price)
}

// BestLevel returns the most favorable price level of the side, or nil when
// the side is empty.
func (b *Book) BestLevel(side Side) *PriceLevel {
	price, ok := b.BestPrice(side)
	if !ok {
		return nil
	}
	return b.LevelAt(side, price)
}

// OrdersAt returns the resting orders at the given price, ranked by
// identity, or nil if no such level exists.
func (b *Book) OrdersAt(side Side, price float64) []*OrderEvent {
	level := b.LevelAt(side, price)
	if level == nil {
		return nil
	}
	return level.Orders()
}

// OrdersAtBest returns the resting orders at the side's best price, or nil
// when the side is empty.
func (b *Book) OrdersAtBest(side Side) []*OrderEvent {
	level := b.BestLevel(side)
	if level == nil {
		return nil
	}
	return level.Orders()
}

// TopN joins the bid and ask top-n levels into a single depth table, most
// favorable prices first, padding the shorter side.
func (b *Book) TopN(n int) []DepthRow {
	return joinDepth(b.bid.TopPrices(n), b.ask.TopPrices(n))
}

// BottomN joins the bid and ask bottom-n levels, least favorable first
func (b *Book) BottomN(n int) []DepthRow {
	return joinDepth(b.bid.BottomPrices(n), b.ask.BottomPrices(n))
}

func joinDepth(bids, asks []PriceQty) []DepthRow {
	rows := len(bids)
	if len(asks) > rows {
		rows = len(asks)
	}

	out := make([]DepthRow, rows)
	for i := range out {
		if i < len(bids) {
			out[i].BidPrice = bids[i].Price
			out[i].BidQty = bids[i].Qty
			out[i].HasBid = true
		}
		if i < len(asks) {
			out[i].AskPrice = asks[i].Price
			out[i].AskQty = asks[i].Qty
			out[i].HasAsk = true
		}
	}

	return out
}

// Stats returns resting-order and price-level counts per side
func (b *Book) Stats() Stats {
	return Stats{
		BidOrders: b.bid.OrderCount(),
		AskOrders: b.ask.OrderCount(),
		BidLevels: b.bid.LevelCount(),
		AskLevels: b.ask.LevelCount(),
	}
}

// LastTradePrice returns the most recent traded price reported through a
// located passive order, and whether one has been seen.
func (b *Book) LastTradePrice() (float64, bool) {
	return b.lastTradePrice, b.hasLastTrade
}

// MaxOrderID returns the highest order identity seen across all events
func (b *Book) MaxOrderID() int64 {
	return b.maxOrderID
}
