package core

import (
	"errors"
	"math"
)

// PriceTolerance is the maximum distance between two floating-point prices
// that still identify the same price level. Feed prices arrive as floats and
// carry rounding noise well below this threshold.
const PriceTolerance = 1e-4

// Errors
var (
	ErrPriceMismatch   = errors.New("price level mismatch")
	ErrInvalidSide     = errors.New("invalid side")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrUnknownStatus   = errors.New("unknown order status")
)

// SamePrice reports whether two prices identify the same price level.
func SamePrice(a, b float64) bool {
	return math.Abs(a-b) < PriceTolerance
}

// priceLess orders prices with the same tolerance used by SamePrice, so that
// near-equal floats compare as neither less nor greater.
func priceLess(a, b float64) bool {
	return (b - a) > PriceTolerance
}
