package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// logExporter writes finished spans to a logger at debug level, one record
// per span with its attributes flattened into the record.
type logExporter struct {
	logger *slog.Logger
}

var _ sdktrace.SpanExporter = (*logExporter)(nil)

func (e *logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !e.logger.Enabled(ctx, slog.LevelDebug) {
		return nil
	}
	for _, s := range spans {
		attrs := make([]slog.Attr, 0, len(s.Attributes())+4)
		attrs = append(attrs,
			slog.String("span", s.Name()),
			slog.String("trace_id", s.SpanContext().TraceID().String()),
			slog.Duration("duration", s.EndTime().Sub(s.StartTime())),
		)
		if st := s.Status(); st.Code == codes.Error {
			attrs = append(attrs, slog.String("status", st.Description))
		}
		for _, kv := range s.Attributes() {
			attrs = append(attrs, slog.String(string(kv.Key), kv.Value.Emit()))
		}
		e.logger.LogAttrs(ctx, slog.LevelDebug, "Span finished", attrs...)
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error { return nil }
