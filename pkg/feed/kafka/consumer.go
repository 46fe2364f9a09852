package kafka

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/talaikis/qbook/pkg/core"
	"github.com/talaikis/qbook/pkg/feed"
)

// ApplyFunc applies one decoded event to a managed book
type ApplyFunc func(ctx context.Context, ev *core.OrderEvent) error

// Consumer reads order lifecycle events from the feed topic and applies them
// through the supplied ApplyFunc. Offsets are committed only after the event
// has been handed off, so a crash replays rather than drops events; the
// book's reconciliation absorbs the resulting duplicates.
type Consumer struct {
	reader *kafka.Reader
	logger zerolog.Logger
}

// NewConsumer creates a Consumer for the given brokers, topic and group
func NewConsumer(brokers []string, topic, groupID string, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &Consumer{
		reader: reader,
		logger: logger.With().Str("component", "feed-consumer").Logger(),
	}
}

// Run consumes until the context is canceled. Malformed messages are logged
// and committed so they are not redelivered forever; apply errors stop the
// consumer because they signal a corrupted book.
func (c *Consumer) Run(ctx context.Context, apply ApplyFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		ev, err := feed.DecodeEvent(msg.Value)
		if err != nil {
			c.logger.Warn().Err(err).
				Int64("offset", msg.Offset).
				Msg("Skipping malformed feed message")
		} else if err := apply(ctx, ev); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
