package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/talaikis/qbook/pkg/core"
	"github.com/talaikis/qbook/pkg/feed"
	"github.com/talaikis/qbook/pkg/logging"
)

// API serves the book query surface over HTTP
type API struct {
	manager *Manager
	hub     *Hub
	logger  zerolog.Logger
}

// NewAPI creates an API around the given manager and websocket hub
func NewAPI(manager *Manager, hub *Hub, logger zerolog.Logger) *API {
	return &API{
		manager: manager,
		hub:     hub,
		logger:  logger,
	}
}

// Router builds the HTTP route table
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(logging.Middleware(a.logger))

	r.HandleFunc("/books", a.handleCreateBook).Methods(http.MethodPost)
	r.HandleFunc("/books", a.handleListBooks).Methods(http.MethodGet)
	r.HandleFunc("/books/{instrument}", a.handleGetBook).Methods(http.MethodGet)
	r.HandleFunc("/books/{instrument}", a.handleDeleteBook).Methods(http.MethodDelete)
	r.HandleFunc("/books/{instrument}/events", a.handleApplyEvent).Methods(http.MethodPost)
	r.HandleFunc("/books/{instrument}/best/{side}", a.handleBestPrice).Methods(http.MethodGet)
	r.HandleFunc("/books/{instrument}/depth", a.handleDepth).Methods(http.MethodGet)
	r.HandleFunc("/books/{instrument}/orders", a.handleOrders).Methods(http.MethodGet)
	r.HandleFunc("/books/{instrument}/stats", a.handleStats).Methods(http.MethodGet)

	if a.hub != nil {
		r.HandleFunc("/ws/depth/{instrument}", a.hub.HandleDepth).Methods(http.MethodGet)
	}

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (a *API) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instrument string `json:"instrument"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Instrument == "" {
		writeError(w, http.StatusBadRequest, "instrument is required")
		return
	}

	info, err := a.manager.CreateBook(r.Context(), req.Instrument)
	if err != nil {
		if errors.Is(err, ErrBookExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (a *API) handleListBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.ListBooks())
}

func (a *API) handleGetBook(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	info, err := a.manager.GetInfo(instrument)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	if err := a.manager.DeleteBook(r.Context(), instrument); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleApplyEvent accepts a feed-format event message over HTTP, mainly for
// integration testing and backfills. Live traffic arrives via Kafka.
func (a *API) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	var msg feed.EventMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event message")
		return
	}

	ev, err := msg.ToOrderEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	applied, err := a.manager.Apply(r.Context(), instrument, ev)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Applied bool `json:"applied"`
	}{Applied: applied})
}

func (a *API) handleBestPrice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	instrument := vars["instrument"]

	side, err := core.ParseSide(vars["side"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, found, err := a.manager.BestPrice(instrument, side)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Side  string  `json:"side"`
		Price float64 `json:"price"`
		Found bool    `json:"found"`
	}{Side: side.String(), Price: price, Found: found})
}

func (a *API) handleDepth(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	levels := 5
	if raw := r.URL.Query().Get("levels"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "levels must be a positive integer")
			return
		}
		levels = n
	}

	var rows []core.DepthRow
	var err error
	if r.URL.Query().Get("from") == "bottom" {
		rows, err = a.manager.BottomDepth(instrument, levels)
	} else {
		rows, err = a.manager.Depth(instrument, levels)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Instrument string          `json:"instrument"`
		Depth      []core.DepthRow `json:"depth"`
	}{Instrument: instrument, Depth: rows})
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	side, err := core.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var price float64
	var hasPrice bool
	if raw := r.URL.Query().Get("price"); raw != "" {
		price, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "price must be a number")
			return
		}
		hasPrice = true
	}

	orders, found, err := a.manager.OrdersAt(instrument, side, price, hasPrice)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no such price level")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Instrument string             `json:"instrument"`
		Side       string             `json:"side"`
		Orders     []*core.OrderEvent `json:"orders"`
	}{Instrument: instrument, Side: side.String(), Orders: orders})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	instrument := mux.Vars(r)["instrument"]

	stats, err := a.manager.BookStats(instrument)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
