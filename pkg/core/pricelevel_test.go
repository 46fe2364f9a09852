package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvent(t *testing.T, id int64, side Side, price float64, total, traded int64, status Status) *OrderEvent {
	t.Helper()

	ev, err := NewOrderEvent(id, 0, side, price, total, traded, status, false)
	require.NoError(t, err)
	return ev
}

func TestPriceLevel_Add(t *testing.T) {
	level := NewPriceLevel(100.0)

	empty, err := level.Add(newTestEvent(t, 1, Bid, 100.0, 10, 0, StatusNew))
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, int64(10), level.Qty())
	assert.Equal(t, 1, level.Size())

	empty, err = level.Add(newTestEvent(t, 2, Bid, 100.0, 7, 0, StatusNew))
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, int64(17), level.Qty())
	assert.Equal(t, 2, level.Size())
}

func TestPriceLevel_AddPriceMismatch(t *testing.T) {
	level := NewPriceLevel(100.0)

	_, err := level.Add(newTestEvent(t, 1, Bid, 101.0, 10, 0, StatusNew))
	assert.ErrorIs(t, err, ErrPriceMismatch)
	assert.Equal(t, int64(0), level.Qty())
}

func TestPriceLevel_AddWithinTolerance(t *testing.T) {
	level := NewPriceLevel(100.0)

	// Floating-point noise below the tolerance lands on the same level.
	empty, err := level.Add(newTestEvent(t, 1, Bid, 100.00001, 10, 0, StatusNew))
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, int64(10), level.Qty())
}

func TestPriceLevel_AddNonRestingStatus(t *testing.T) {
	level := NewPriceLevel(100.0)

	// A non-inserting status on an already-empty level reports the level as
	// empty so the caller discards it.
	empty, err := level.Add(newTestEvent(t, 1, Bid, 100.0, 10, 10, StatusFilled))
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Equal(t, 0, level.Size())
}

func TestPriceLevel_Delete(t *testing.T) {
	level := NewPriceLevel(100.0)

	_, err := level.Add(newTestEvent(t, 1, Bid, 100.0, 10, 0, StatusNew))
	require.NoError(t, err)
	_, err = level.Add(newTestEvent(t, 2, Bid, 100.0, 5, 0, StatusNew))
	require.NoError(t, err)

	empty, err := level.Delete(1, 10)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, int64(5), level.Qty())

	empty, err = level.Delete(2, 5)
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Equal(t, int64(0), level.Qty())
}

func TestPriceLevel_DeleteUnknownID(t *testing.T) {
	level := NewPriceLevel(100.0)

	_, err := level.Delete(42, 10)
	assert.ErrorIs(t, err, ErrPriceMismatch)
}

func TestPriceLevel_OrdersRankedByIdentity(t *testing.T) {
	level := NewPriceLevel(100.0)

	for _, id := range []int64{5, 1, 3} {
		_, err := level.Add(newTestEvent(t, id, Bid, 100.0, 10, 0, StatusNew))
		require.NoError(t, err)
	}

	orders := level.Orders()
	require.Len(t, orders, 3)
	assert.Equal(t, int64(1), orders[0].OrderID())
	assert.Equal(t, int64(3), orders[1].OrderID())
	assert.Equal(t, int64(5), orders[2].OrderID())
}
