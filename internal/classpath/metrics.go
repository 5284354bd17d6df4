package classpath

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("jls.classpath")

var (
	classesIndexed metric.Int64Counter
	decodeFailures metric.Int64Counter
	indexLatency   metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		classesIndexed, err = meter.Int64Counter(
			"jls_classes_indexed_total",
			metric.WithDescription("Classes added to the class index"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		decodeFailures, err = meter.Int64Counter(
			"jls_class_decode_failures_total",
			metric.WithDescription("Class files skipped because they could not be decoded"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		indexLatency, err = meter.Float64Histogram(
			"jls_index_duration_seconds",
			metric.WithDescription("Duration of classpath indexing"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordIndexMetrics(ctx context.Context, s Stats) {
	if err := initMetrics(); err != nil {
		return
	}
	classesIndexed.Add(ctx, int64(s.Decoded))
	decodeFailures.Add(ctx, int64(s.Failed))
	indexLatency.Record(ctx, s.Duration.Seconds())
}
