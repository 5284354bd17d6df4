package lsp

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("jls.lsp")

var (
	messagesTotal        metric.Int64Counter
	notificationsDropped metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		messagesTotal, err = meter.Int64Counter(
			"jls_lsp_messages_total",
			metric.WithDescription("Inbound messages by method"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		notificationsDropped, err = meter.Int64Counter(
			"jls_notifications_dropped_total",
			metric.WithDescription("Outbound notifications dropped because the queue was full"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordMessage(ctx context.Context, method string) {
	if err := initMetrics(); err != nil {
		return
	}
	messagesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

func recordDropped(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	notificationsDropped.Add(ctx, 1)
}
