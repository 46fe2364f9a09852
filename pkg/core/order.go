package core

import (
	"encoding/json"
	"fmt"
)

// Side represents the bid or ask side of the book
type Side int

// Book sides
const (
	Bid Side = iota
	Ask
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// ParseSide parses a feed side identifier
func ParseSide(s string) (Side, error) {
	switch s {
	case "BID":
		return Bid, nil
	case "ASK":
		return Ask, nil
	default:
		return Side(-1), fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Status represents the lifecycle status carried by an order event
type Status int

// Order statuses
const (
	StatusUnknown Status = iota
	StatusNew
	StatusReplaced
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusExpired
)

// String returns status as string, matching the feed's spelling
func (st Status) String() string {
	switch st {
	case StatusNew:
		return "New"
	case StatusReplaced:
		return "Replaced"
	case StatusPartiallyFilled:
		return "Partially Filled"
	case StatusFilled:
		return "Filled"
	case StatusCanceled:
		return "Canceled"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// ParseStatus parses a feed status identifier
func ParseStatus(s string) (Status, error) {
	switch s {
	case "New":
		return StatusNew, nil
	case "Replaced":
		return StatusReplaced, nil
	case "Partially Filled":
		return StatusPartiallyFilled, nil
	case "Filled":
		return StatusFilled, nil
	case "Canceled":
		return StatusCanceled, nil
	case "Expired":
		return StatusExpired, nil
	default:
		return StatusUnknown, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// rests reports whether an event with this status leaves liquidity on the book.
func (st Status) rests() bool {
	switch st {
	case StatusNew, StatusReplaced, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// OrderEvent is a snapshot of one lifecycle event for one order identity.
// It is constructed once per inbound message and never mutated afterwards.
type OrderEvent struct {
	orderID    int64
	newOrderID int64
	side       Side
	price      float64
	remaining  int64
	status     Status
	aggressor  bool
}

// NewOrderEvent creates a new OrderEvent. The remaining quantity is the
// reported total minus the cumulative traded quantity.
func NewOrderEvent(orderID, newOrderID int64, side Side, price float64, totalQty, tradedQty int64, status Status, aggressor bool) (*OrderEvent, error) {
	if side != Bid && side != Ask {
		return nil, ErrInvalidSide
	}

	return &OrderEvent{
		orderID:    orderID,
		newOrderID: newOrderID,
		side:       side,
		price:      price,
		remaining:  totalQty - tradedQty,
		status:     status,
		aggressor:  aggressor,
	}, nil
}

// OrderID returns the order identity, stable across replaces
func (e *OrderEvent) OrderID() int64 {
	return e.orderID
}

// NewOrderID returns the replacement identity reported by the feed.
// It is carried through but never used to re-key a resting order; the
// upstream contract keeps OrderID stable across replaces.
func (e *OrderEvent) NewOrderID() int64 {
	return e.newOrderID
}

// Side returns the side of the event
func (e *OrderEvent) Side() Side {
	return e.side
}

// Price returns the reported price
func (e *OrderEvent) Price() float64 {
	return e.price
}

// RemainingQty returns total quantity minus traded quantity
func (e *OrderEvent) RemainingQty() int64 {
	return e.remaining
}

// Status returns the lifecycle status of the event
func (e *OrderEvent) Status() Status {
	return e.status
}

// IsAggressor reports whether the event is the incoming side of a trade
func (e *OrderEvent) IsAggressor() bool {
	return e.aggressor
}

// MarshalJSON implements json.Marshaler
func (e *OrderEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OrderID    int64   `json:"orderID"`
		NewOrderID int64   `json:"newOrderID,omitempty"`
		Side       string  `json:"side"`
		Price      float64 `json:"price"`
		Remaining  int64   `json:"remainingQty"`
		Status     string  `json:"status"`
		Aggressor  bool    `json:"aggressor"`
	}{
		OrderID:    e.orderID,
		NewOrderID: e.newOrderID,
		Side:       e.side.String(),
		Price:      e.price,
		Remaining:  e.remaining,
		Status:     e.status.String(),
		Aggressor:  e.aggressor,
	})
}

// String implements fmt.Stringer
func (e *OrderEvent) String() string {
	j, _ := e.MarshalJSON()
	return string(j)
}
