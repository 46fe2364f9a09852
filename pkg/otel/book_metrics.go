package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys used on book metrics and spans
const (
	AttributeInstrument  = "book.instrument"
	AttributeEventSide   = "event.side"
	AttributeEventStatus = "event.status"
)

var bookMetrics *BookMetrics

// BookMetrics holds metrics for book event processing
type BookMetrics struct {
	eventsApplied  metric.Int64Counter
	eventsIgnored  metric.Int64Counter
	eventsRejected metric.Int64Counter
	restingOrders  metric.Int64Gauge
}

// GetBookMetrics returns the BookMetrics singleton
func GetBookMetrics() *BookMetrics {
	if bookMetrics == nil {
		meter := otel.GetMeterProvider().Meter(instrumentationName)

		m := &BookMetrics{}
		var err error

		m.eventsApplied, err = meter.Int64Counter(
			"book.events_applied.total",
			metric.WithDescription("Total number of events applied to a book"),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return &BookMetrics{}
		}

		m.eventsIgnored, err = meter.Int64Counter(
			"book.events_ignored.total",
			metric.WithDescription("Total number of events dropped or filtered before applying"),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return &BookMetrics{}
		}

		m.eventsRejected, err = meter.Int64Counter(
			"book.events_rejected.total",
			metric.WithDescription("Total number of events that failed to apply"),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return &BookMetrics{}
		}

		m.restingOrders, err = meter.Int64Gauge(
			"book.resting_orders",
			metric.WithDescription("Number of orders resting on one side of a book"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return &BookMetrics{}
		}

		bookMetrics = m
	}

	return bookMetrics
}

// RecordApplied increments the applied-events counter
func (m *BookMetrics) RecordApplied(ctx context.Context, instrument, status string) {
	if m.eventsApplied == nil {
		return
	}

	m.eventsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
		attribute.String(AttributeEventStatus, status),
	))
}

// RecordIgnored increments the ignored-events counter
func (m *BookMetrics) RecordIgnored(ctx context.Context, instrument string) {
	if m.eventsIgnored == nil {
		return
	}

	m.eventsIgnored.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
	))
}

// RecordRejected increments the rejected-events counter
func (m *BookMetrics) RecordRejected(ctx context.Context, instrument string) {
	if m.eventsRejected == nil {
		return
	}

	m.eventsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
	))
}

// RecordRestingOrders records the current resting-order count for one side
func (m *BookMetrics) RecordRestingOrders(ctx context.Context, instrument, side string, count int64) {
	if m.restingOrders == nil {
		return
	}

	m.restingOrders.Record(ctx, count, metric.WithAttributes(
		attribute.String(AttributeInstrument, instrument),
		attribute.String(AttributeEventSide, side),
	))
}
