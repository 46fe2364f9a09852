package feed

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talaikis/qbook/pkg/core"
)

const replayStream = `{"order_id":1,"order_side":"BID","order_price":100.0,"total_qty_order":10,"traded_qty_order":0,"order_status":"New","agressor_indicator":"Passive"}
{"order_id":2,"order_side":"ASK","order_price":101.0,"total_qty_order":8,"traded_qty_order":0,"order_status":"New","agressor_indicator":"Passive"}
not a json line
{"order_id":1,"order_side":"BID","order_price":100.0,"total_qty_order":10,"traded_qty_order":4,"order_status":"Partially Filled","agressor_indicator":"Passive"}
`

func TestReplayer_Replay(t *testing.T) {
	book := core.NewBook("PETR4")
	rp := NewReplayer(book, zerolog.Nop())

	sum, err := rp.Replay(context.Background(), strings.NewReader(replayStream))
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Events)
	assert.Equal(t, 3, sum.Applied)
	assert.Equal(t, 1, sum.Malformed)
	assert.Equal(t, 0, sum.Dropped)

	level := book.LevelAt(core.Bid, 100.0)
	require.NotNil(t, level)
	assert.Equal(t, int64(6), level.Qty())

	last, seen := book.LastTradePrice()
	require.True(t, seen)
	assert.InDelta(t, 100.0, last, core.PriceTolerance)
}

func TestReplayer_ContextCancel(t *testing.T) {
	book := core.NewBook("PETR4")
	rp := NewReplayer(book, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rp.Replay(ctx, strings.NewReader(replayStream))
	assert.ErrorIs(t, err, context.Canceled)
}
