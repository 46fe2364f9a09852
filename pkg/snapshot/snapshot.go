// Package snapshot periodically persists book depth to Redis so dashboards
// and restarted consumers can read the latest state without replaying the
// feed.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/talaikis/qbook/pkg/core"
)

const keyPrefix = "qbook:depth:"

// DepthSource yields the instruments to snapshot and their current depth.
// *server.Manager satisfies it.
type DepthSource interface {
	Instruments() []string
	Depth(instrument string, n int) ([]core.DepthRow, error)
}

// Payload is the JSON document stored per instrument
type Payload struct {
	Instrument string          `json:"instrument"`
	Depth      []core.DepthRow `json:"depth"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Writer snapshots depth tables into Redis on a fixed interval
type Writer struct {
	client   *redis.Client
	source   DepthSource
	levels   int
	interval time.Duration
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewWriter creates a Writer and verifies the Redis connection
func NewWriter(ctx context.Context, addr string, source DepthSource, levels int, interval time.Duration, logger zerolog.Logger) (*Writer, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Writer{
		client:   client,
		source:   source,
		levels:   levels,
		interval: interval,
		ttl:      interval * 10,
		logger:   logger.With().Str("component", "snapshot").Logger(),
	}, nil
}

// Run writes snapshots until the context is canceled. It always writes once
// immediately so a fresh start is visible before the first tick.
func (w *Writer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.writeAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.writeAll(ctx)
		}
	}
}

func (w *Writer) writeAll(ctx context.Context) {
	for _, instrument := range w.source.Instruments() {
		if err := w.WriteSnapshot(ctx, instrument); err != nil {
			w.logger.Warn().Err(err).Str("instrument", instrument).Msg("Failed to write snapshot")
		}
	}
}

// WriteSnapshot stores the current depth of one instrument
func (w *Writer) WriteSnapshot(ctx context.Context, instrument string) error {
	depth, err := w.source.Depth(instrument, w.levels)
	if err != nil {
		return err
	}

	payload := Payload{
		Instrument: instrument,
		Depth:      depth,
		Timestamp:  time.Now().UTC(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return w.client.Set(ctx, Key(instrument), data, w.ttl).Err()
}

// ReadSnapshot fetches the stored depth of one instrument. It returns
// redis.Nil when no snapshot exists.
func (w *Writer) ReadSnapshot(ctx context.Context, instrument string) (*Payload, error) {
	data, err := w.client.Get(ctx, Key(instrument)).Bytes()
	if err != nil {
		return nil, err
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &payload, nil
}

// Key returns the Redis key that holds the instrument's snapshot
func Key(instrument string) string {
	return keyPrefix + instrument
}

// Close releases the Redis connection
func (w *Writer) Close() error {
	return w.client.Close()
}
