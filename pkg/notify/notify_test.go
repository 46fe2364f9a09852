package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookUpdate_JSON(t *testing.T) {
	u := &BookUpdate{
		Instrument:     "PETR4",
		OrderID:        42,
		Status:         "Partially Filled",
		BestBid:        100.0,
		HasBestBid:     true,
		BestAsk:        101.0,
		HasBestAsk:     true,
		LastTradePrice: 100.0,
		HasLastTrade:   true,
		Timestamp:      time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var decoded BookUpdate
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *u, decoded)
}

func TestMockPublisher(t *testing.T) {
	pub := NewMockPublisher()

	err := pub.PublishBookUpdate(context.Background(), &BookUpdate{Instrument: "PETR4", OrderID: 1})
	require.NoError(t, err)
	err = pub.PublishBookUpdate(context.Background(), &BookUpdate{Instrument: "PETR4", OrderID: 2})
	require.NoError(t, err)

	updates := pub.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, int64(1), updates[0].OrderID)
	assert.Equal(t, int64(2), updates[1].OrderID)

	assert.False(t, pub.Closed())
	require.NoError(t, pub.Close())
	assert.True(t, pub.Closed())
}
