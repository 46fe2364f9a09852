package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/talaikis/qbook/pkg/core"
	"github.com/talaikis/qbook/pkg/logging"
	"github.com/talaikis/qbook/pkg/otel"
)

var (
	// ErrBookExists is returned when trying to create a book that already exists
	ErrBookExists = errors.New("book for this instrument already exists")

	// ErrBookNotFound is returned when trying to access a non-existent book
	ErrBookNotFound = errors.New("book not found")
)

// BookInfo contains metadata about a managed book
type BookInfo struct {
	Instrument string     `json:"instrument"`
	CreatedAt  time.Time  `json:"createdAt"`
	MaxOrderID int64      `json:"maxOrderID"`
	Stats      core.Stats `json:"stats"`
}

// Update is the payload handed to update hooks after an event has been
// applied. It is assembled while the book lock is held so hooks never touch
// the book itself.
type Update struct {
	Instrument     string          `json:"instrument"`
	OrderID        int64           `json:"orderID"`
	Status         string          `json:"status"`
	BestBid        float64         `json:"bestBid"`
	HasBestBid     bool            `json:"hasBestBid"`
	BestAsk        float64         `json:"bestAsk"`
	HasBestAsk     bool            `json:"hasBestAsk"`
	LastTradePrice float64         `json:"lastTradePrice"`
	HasLastTrade   bool            `json:"hasLastTrade"`
	Depth          []core.DepthRow `json:"depth"`
	Timestamp      time.Time       `json:"timestamp"`
}

// UpdateHook receives a copy of the book's state after each applied event
type UpdateHook func(ctx context.Context, u Update)

// managedBook pairs a book with the per-instrument lock that serializes
// writers. The core structures are not internally synchronized.
type managedBook struct {
	mu      sync.RWMutex
	book    *core.Book
	created time.Time
}

// Manager owns the live books, one per instrument, and serializes access to
// each through a per-instrument lock.
type Manager struct {
	mu          sync.RWMutex
	books       map[string]*managedBook
	depthLevels int
	hooks       []UpdateHook
}

// NewManager creates a Manager. depthLevels controls how many levels update
// payloads and snapshots carry.
func NewManager(depthLevels int) *Manager {
	if depthLevels <= 0 {
		depthLevels = 5
	}

	return &Manager{
		books:       make(map[string]*managedBook),
		depthLevels: depthLevels,
	}
}

// OnUpdate registers a hook invoked after every applied event. Hooks must be
// registered before events start flowing.
func (m *Manager) OnUpdate(hook UpdateHook) {
	m.hooks = append(m.hooks, hook)
}

// CreateBook creates an empty book for the instrument
func (m *Manager) CreateBook(ctx context.Context, instrument string) (*BookInfo, error) {
	logger := logging.FromContext(ctx).With().Str("instrument", instrument).Logger()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[instrument]; exists {
		logger.Error().Msg("Book already exists")
		return nil, ErrBookExists
	}

	mb := &managedBook{
		book:    core.NewBook(instrument),
		created: time.Now(),
	}
	m.books[instrument] = mb

	logger.Info().Msg("Created new book")
	return m.info(mb), nil
}

// DeleteBook removes the book for the instrument
func (m *Manager) DeleteBook(ctx context.Context, instrument string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[instrument]; !exists {
		return ErrBookNotFound
	}

	delete(m.books, instrument)
	logger := logging.FromContext(ctx)
	logger.Info().Str("instrument", instrument).Msg("Deleted book")
	return nil
}

// GetInfo returns metadata for one book
func (m *Manager) GetInfo(instrument string) (*BookInfo, error) {
	mb, err := m.managed(instrument)
	if err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return m.info(mb), nil
}

// ListBooks returns metadata for all managed books
func (m *Manager) ListBooks() []*BookInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*BookInfo, 0, len(m.books))
	for _, mb := range m.books {
		mb.mu.RLock()
		out = append(out, m.info(mb))
		mb.mu.RUnlock()
	}
	return out
}

// Instruments returns the instruments of all managed books
func (m *Manager) Instruments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.books))
	for instrument := range m.books {
		out = append(out, instrument)
	}
	return out
}

func (m *Manager) info(mb *managedBook) *BookInfo {
	return &BookInfo{
		Instrument: mb.book.Instrument(),
		CreatedAt:  mb.created,
		MaxOrderID: mb.book.MaxOrderID(),
		Stats:      mb.book.Stats(),
	}
}

func (m *Manager) managed(instrument string) (*managedBook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mb, exists := m.books[instrument]
	if !exists {
		return nil, ErrBookNotFound
	}
	return mb, nil
}

// Apply routes one event to the instrument's book under its write lock,
// records metrics and notifies registered hooks. The boolean mirrors
// Book.Update: true when the event was applied or intentionally ignored.
func (m *Manager) Apply(ctx context.Context, instrument string, ev *core.OrderEvent) (bool, error) {
	ctx, span := otel.StartBookSpan(ctx, otel.SpanApplyEvent,
		attribute.String(otel.AttributeInstrument, instrument),
		attribute.String(otel.AttributeEventSide, ev.Side().String()),
		attribute.String(otel.AttributeEventStatus, ev.Status().String()),
	)
	defer span.End()

	mb, err := m.managed(instrument)
	if err != nil {
		return false, err
	}

	metrics := otel.GetBookMetrics()

	mb.mu.Lock()
	ok, err := mb.book.Update(ev)
	var u Update
	if err == nil && ok {
		u = m.buildUpdate(mb.book, ev)
	}
	stats := mb.book.Stats()
	mb.mu.Unlock()

	if err != nil {
		metrics.RecordRejected(ctx, instrument)
		return false, err
	}
	if !ok {
		metrics.RecordIgnored(ctx, instrument)
		return false, nil
	}

	metrics.RecordApplied(ctx, instrument, ev.Status().String())
	metrics.RecordRestingOrders(ctx, instrument, core.Bid.String(), int64(stats.BidOrders))
	metrics.RecordRestingOrders(ctx, instrument, core.Ask.String(), int64(stats.AskOrders))

	for _, hook := range m.hooks {
		hook(ctx, u)
	}

	return true, nil
}

// buildUpdate is called with the book lock held
func (m *Manager) buildUpdate(book *core.Book, ev *core.OrderEvent) Update {
	u := Update{
		Instrument: book.Instrument(),
		OrderID:    ev.OrderID(),
		Status:     ev.Status().String(),
		Depth:      book.TopN(m.depthLevels),
		Timestamp:  time.Now(),
	}

	u.BestBid, u.HasBestBid = book.BestPrice(core.Bid)
	u.BestAsk, u.HasBestAsk = book.BestPrice(core.Ask)
	u.LastTradePrice, u.HasLastTrade = book.LastTradePrice()

	return u
}

// BestPrice returns the top-of-book price for one side of a book
func (m *Manager) BestPrice(instrument string, side core.Side) (float64, bool, error) {
	mb, err := m.managed(instrument)
	if err != nil {
		return 0, false, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	price, found := mb.book.BestPrice(side)
	return price, found, nil
}

// Depth returns the joined top-n depth table of a book
func (m *Manager) Depth(instrument string, n int) ([]core.DepthRow, error) {
	mb, err := m.managed(instrument)
	if err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.book.TopN(n), nil
}

// BottomDepth returns the joined bottom-n depth table of a book
func (m *Manager) BottomDepth(instrument string, n int) ([]core.DepthRow, error) {
	mb, err := m.managed(instrument)
	if err != nil {
		return nil, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.book.BottomN(n), nil
}

// OrdersAt returns the resting orders at the given price, or at the side's
// best price when hasPrice is false. The boolean reports whether a level was
// found.
func (m *Manager) OrdersAt(instrument string, side core.Side, price float64, hasPrice bool) ([]*core.OrderEvent, bool, error) {
	mb, err := m.managed(instrument)
	if err != nil {
		return nil, false, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	var orders []*core.OrderEvent
	if hasPrice {
		orders = mb.book.OrdersAt(side, price)
	} else {
		orders = mb.book.OrdersAtBest(side)
	}

	return orders, orders != nil, nil
}

// BookStats returns resting-order and level counts of a book
func (m *Manager) BookStats(instrument string) (core.Stats, error) {
	mb, err := m.managed(instrument)
	if err != nil {
		return core.Stats{}, err
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.book.Stats(), nil
}
