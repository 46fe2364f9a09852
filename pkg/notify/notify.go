package notify

import (
	"context"
	"time"
)

// BookUpdate is the message published to downstream consumers after an event
// has been applied to a book.
type BookUpdate struct {
	Instrument     string    `json:"instrument"`
	OrderID        int64     `json:"orderID"`
	Status         string    `json:"status"`
	BestBid        float64   `json:"bestBid"`
	HasBestBid     bool      `json:"hasBestBid"`
	BestAsk        float64   `json:"bestAsk"`
	HasBestAsk     bool      `json:"hasBestAsk"`
	LastTradePrice float64   `json:"lastTradePrice"`
	HasLastTrade   bool      `json:"hasLastTrade"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher defines an interface for publishing book updates. This keeps the
// server package decoupled from the Kafka implementation.
type Publisher interface {
	PublishBookUpdate(ctx context.Context, u *BookUpdate) error
	Close() error
}
