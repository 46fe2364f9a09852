package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talaikis/qbook/pkg/core"
)

type fakeSource struct {
	depth map[string][]core.DepthRow
}

func (f *fakeSource) Instruments() []string {
	out := make([]string, 0, len(f.depth))
	for instrument := range f.depth {
		out = append(out, instrument)
	}
	return out
}

func (f *fakeSource) Depth(instrument string, _ int) ([]core.DepthRow, error) {
	return f.depth[instrument], nil
}

func TestKey(t *testing.T) {
	assert.Equal(t, "qbook:depth:PETR4", Key("PETR4"))
}

func TestPayloadRoundTrip(t *testing.T) {
	payload := Payload{
		Instrument: "PETR4",
		Depth: []core.DepthRow{
			{BidQty: 10, BidPrice: 100.0, HasBid: true, AskPrice: 101.0, AskQty: 7, HasAsk: true},
			{BidQty: 4, BidPrice: 99.5, HasBid: true},
		},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var got Payload
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, payload, got)
}

func TestWriterBuildsPayloadFromSource(t *testing.T) {
	source := &fakeSource{
		depth: map[string][]core.DepthRow{
			"PETR4": {{BidQty: 10, BidPrice: 100.0, HasBid: true}},
		},
	}

	w := &Writer{source: source, levels: 5}

	depth, err := w.source.Depth("PETR4", w.levels)
	require.NoError(t, err)
	require.Len(t, depth, 1)
	assert.Equal(t, int64(10), depth[0].BidQty)

	assert.ElementsMatch(t, []string{"PETR4"}, w.source.Instruments())
}
