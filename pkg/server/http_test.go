package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talaikis/qbook/pkg/core"
)

func newTestAPI() *API {
	return NewAPI(NewManager(5), nil, zerolog.Nop())
}

func doRequest(t *testing.T, api *API, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func postEvent(t *testing.T, api *API, instrument string, msg string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, api, http.MethodPost, "/books/"+instrument+"/events", msg)
}

func eventJSON(orderID int64, side string, price float64, total, traded int64, status string) string {
	return fmt.Sprintf(`{"order_id":%d,"order_side":%q,"order_price":%g,"total_qty_order":%d,"traded_qty_order":%d,"order_status":%q,"agressor_indicator":"Passive"}`,
		orderID, side, price, total, traded, status)
}

func TestAPI_CreateBook(t *testing.T) {
	api := newTestAPI()

	rec := doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var info BookInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "PETR4", info.Instrument)

	rec = doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, api, http.MethodPost, "/books", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetAndDeleteBook(t *testing.T) {
	api := newTestAPI()

	rec := doRequest(t, api, http.MethodGet, "/books/PETR4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)

	rec = doRequest(t, api, http.MethodGet, "/books/PETR4", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, api, http.MethodDelete, "/books/PETR4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, api, http.MethodDelete, "/books/PETR4", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ApplyEvent(t *testing.T) {
	api := newTestAPI()
	doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)

	rec := postEvent(t, api, "PETR4", eventJSON(1, "BID", 100.0, 10, 0, "New"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"applied":true`)

	// Unknown book.
	rec = postEvent(t, api, "VALE3", eventJSON(1, "BID", 100.0, 10, 0, "New"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed JSON and failed validation both reject with 400.
	rec = postEvent(t, api, "PETR4", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postEvent(t, api, "PETR4", eventJSON(2, "BID", 100.0, 5, 9, "New"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_BestPriceAndDepth(t *testing.T) {
	api := newTestAPI()
	doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)

	postEvent(t, api, "PETR4", eventJSON(1, "BID", 100.0, 10, 0, "New"))
	postEvent(t, api, "PETR4", eventJSON(2, "BID", 99.5, 4, 0, "New"))
	postEvent(t, api, "PETR4", eventJSON(3, "ASK", 101.0, 7, 0, "New"))

	rec := doRequest(t, api, http.MethodGet, "/books/PETR4/best/BID", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var best struct {
		Side  string  `json:"side"`
		Price float64 `json:"price"`
		Found bool    `json:"found"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &best))
	assert.True(t, best.Found)
	assert.InDelta(t, 100.0, best.Price, core.PriceTolerance)

	rec = doRequest(t, api, http.MethodGet, "/books/PETR4/best/sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, api, http.MethodGet, "/books/PETR4/depth?levels=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var depth struct {
		Instrument string          `json:"instrument"`
		Depth      []core.DepthRow `json:"depth"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &depth))
	require.Len(t, depth.Depth, 2)
	assert.Equal(t, int64(10), depth.Depth[0].BidQty)
	assert.Equal(t, int64(7), depth.Depth[0].AskQty)
	assert.Equal(t, int64(4), depth.Depth[1].BidQty)
	assert.False(t, depth.Depth[1].HasAsk)

	rec = doRequest(t, api, http.MethodGet, "/books/PETR4/depth?levels=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Orders(t *testing.T) {
	api := newTestAPI()
	doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)

	postEvent(t, api, "PETR4", eventJSON(1, "BID", 100.0, 10, 0, "New"))
	postEvent(t, api, "PETR4", eventJSON(2, "BID", 100.0, 5, 0, "New"))

	rec := doRequest(t, api, http.MethodGet, "/books/PETR4/orders?side=BID&price=100.0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `"orderID"`))

	// Best-price form.
	rec = doRequest(t, api, http.MethodGet, "/books/PETR4/orders?side=BID", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, api, http.MethodGet, "/books/PETR4/orders?side=BID&price=42.0", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, api, http.MethodGet, "/books/PETR4/orders?side=ASK", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Stats(t *testing.T) {
	api := newTestAPI()
	doRequest(t, api, http.MethodPost, "/books", `{"instrument":"PETR4"}`)

	postEvent(t, api, "PETR4", eventJSON(1, "BID", 100.0, 10, 0, "New"))

	rec := doRequest(t, api, http.MethodGet, "/books/PETR4/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats core.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.BidOrders)
	assert.Equal(t, 1, stats.BidLevels)
	assert.Equal(t, 0, stats.AskOrders)
}
