// Package telemetry installs the process's OpenTelemetry providers: spans
// are written to the log at debug level, and metrics are served in the
// Prometheus text format over HTTP when an address is configured.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"jls/internal/slogutil"
)

// MetricsPath is where the exporter serves metrics.
const MetricsPath = "/metrics"

// Options configures Init.
type Options struct {
	// Addr is the listen address, e.g. "127.0.0.1:9464". Empty disables
	// the HTTP endpoint; instruments then stay no-ops.
	Addr           string
	ServiceVersion string
	Logger         *slog.Logger
}

// Telemetry owns the tracer and meter providers and the metrics endpoint.
type Telemetry struct {
	tracer   *sdktrace.TracerProvider
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// Init installs a global tracer provider that logs finished spans, and a
// global meter provider backed by a Prometheus registry served on
// opts.Addr. With an empty address metrics stay disabled.
func Init(ctx context.Context, opts Options) (*Telemetry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	t := &Telemetry{logger: logger}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "jls"),
		attribute.String("service.version", opts.ServiceVersion),
	)
	t.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(&logExporter{logger: logger}),
	)
	otel.SetTracerProvider(t.tracer)

	if opts.Addr == "" {
		return t, nil
	}

	t.registry = prometheus.NewRegistry()
	exporter, err := promexporter.New(promexporter.WithRegisterer(t.registry))
	if err != nil {
		_ = t.tracer.Shutdown(ctx)
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	t.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(t.provider)

	var lc net.ListenConfig
	t.listener, err = lc.Listen(ctx, "tcp", opts.Addr)
	if err != nil {
		_ = t.provider.Shutdown(ctx)
		_ = t.tracer.Shutdown(ctx)
		return nil, fmt.Errorf("listen on %s: %w", opts.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, t.Handler())
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := t.server.Serve(t.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("Metrics server stopped", "error", err.Error())
		}
	}()
	t.logger.Info("Serving metrics", "addr", t.listener.Addr().String(), "path", MetricsPath)
	return t, nil
}

// Enabled reports whether metrics are exported.
func (t *Telemetry) Enabled() bool { return t.provider != nil }

// Addr returns the bound listen address, or "" when disabled.
func (t *Telemetry) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// Handler serves the registry in the Prometheus text format.
func (t *Telemetry) Handler() http.Handler {
	if t.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown stops the endpoint and flushes the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
