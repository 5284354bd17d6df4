package compiler

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("jls.compiler")
	meter  = otel.Meter("jls.compiler")
)

var (
	compileLatency     metric.Float64Histogram
	staleSources       metric.Int64Counter
	diagnosticsTotal   metric.Int64Counter
	invocationFailures metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		compileLatency, err = meter.Float64Histogram(
			"jls_compile_duration_seconds",
			metric.WithDescription("Duration of compile cycles that invoked the compiler"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		staleSources, err = meter.Int64Counter(
			"jls_compile_stale_sources_total",
			metric.WithDescription("Source files passed to the compiler"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticsTotal, err = meter.Int64Counter(
			"jls_compile_diagnostics_total",
			metric.WithDescription("Errors parsed from compiler output"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		invocationFailures, err = meter.Int64Counter(
			"jls_compile_invocation_failures_total",
			metric.WithDescription("Compiler runs that could not be started or read"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordCompile(ctx context.Context, stale, diagnostics int, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	compileLatency.Record(ctx, duration.Seconds())
	staleSources.Add(ctx, int64(stale))
	diagnosticsTotal.Add(ctx, int64(diagnostics))
}

func recordInvocationFailure(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	invocationFailures.Add(ctx, 1)
}

func startCompileSpan(ctx context.Context, forceAll bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "compiler.Compile",
		trace.WithAttributes(attribute.Bool("compile.force_all", forceAll)),
	)
}

func setCompileSpanResult(span trace.Span, stale, diagnostics int, err error) {
	span.SetAttributes(
		attribute.Int("compile.stale_sources", stale),
		attribute.Int("compile.diagnostics", diagnostics),
		attribute.Bool("compile.success", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
