package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talaikis/qbook/pkg/core"
)

// Aggressor indicator values as spelled by the upstream feed
const (
	IndicatorAggressive = "Agressive"
	IndicatorPassive    = "Passive"
)

// Errors
var (
	ErrMissingOrderID     = errors.New("missing order_id")
	ErrInvalidQuantities  = errors.New("invalid order quantities")
	ErrInvalidIndicator   = errors.New("invalid agressor_indicator")
	ErrMalformedMessage   = errors.New("malformed event message")
	ErrNegativeOrderPrice = errors.New("negative order_price")
)

// EventMessage is the wire representation of one order lifecycle event as
// published by the upstream feed. Field names, including the feed's own
// spelling of "agressor", follow the upstream schema.
type EventMessage struct {
	OrderID           int64   `json:"order_id"`
	NewOrderID        int64   `json:"new_order_id"`
	OrderSide         string  `json:"order_side"`
	OrderPrice        float64 `json:"order_price"`
	TotalQtyOrder     int64   `json:"total_qty_order"`
	TradedQtyOrder    int64   `json:"traded_qty_order"`
	OrderStatus       string  `json:"order_status"`
	AgressorIndicator string  `json:"agressor_indicator"`
}

// ToOrderEvent validates the message and converts it into a core event. All
// boundary validation happens here; the core never sees malformed input.
func (m *EventMessage) ToOrderEvent() (*core.OrderEvent, error) {
	if m.OrderID <= 0 {
		return nil, ErrMissingOrderID
	}

	side, err := core.ParseSide(m.OrderSide)
	if err != nil {
		return nil, err
	}

	status, err := core.ParseStatus(m.OrderStatus)
	if err != nil {
		return nil, err
	}

	if m.OrderPrice < 0 {
		return nil, ErrNegativeOrderPrice
	}

	if m.TotalQtyOrder < 0 || m.TradedQtyOrder < 0 || m.TradedQtyOrder > m.TotalQtyOrder {
		return nil, fmt.Errorf("%w: total=%d traded=%d", ErrInvalidQuantities, m.TotalQtyOrder, m.TradedQtyOrder)
	}

	var aggressor bool
	switch m.AgressorIndicator {
	case IndicatorAggressive:
		aggressor = true
	case IndicatorPassive, "":
		aggressor = false
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidIndicator, m.AgressorIndicator)
	}

	return core.NewOrderEvent(m.OrderID, m.NewOrderID, side, m.OrderPrice,
		m.TotalQtyOrder, m.TradedQtyOrder, status, aggressor)
}

// DecodeEvent parses a JSON-encoded EventMessage and converts it to a core
// event.
func DecodeEvent(data []byte) (*core.OrderEvent, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	return msg.ToOrderEvent()
}
