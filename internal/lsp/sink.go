package lsp

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"jls/internal/slogutil"
	"jls/internal/state"
)

// DefaultQueueSize is used when a sink is created with a non-positive size.
const DefaultQueueSize = 64

// Sink delivers diagnostics to the client through a bounded queue drained by
// one writer goroutine. Publish never blocks: when the queue is full the
// notification is dropped and counted.
type Sink struct {
	conn   *Conn
	queue  chan PublishDiagnosticsParams
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// NewSink creates a sink writing to conn. Call Start before publishing.
func NewSink(conn *Conn, size int, logger *slog.Logger) *Sink {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Sink{
		conn:   conn,
		queue:  make(chan PublishDiagnosticsParams, size),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (s *Sink) Start() {
	go func() {
		defer close(s.done)
		for p := range s.queue {
			if err := s.conn.Notify("textDocument/publishDiagnostics", p); err != nil {
				s.logger.Error("Error writing notification",
					"uri", p.URI,
					"error", err.Error(),
				)
			}
		}
	}()
}

// Close stops accepting notifications and waits until the queued ones are
// written. Start must have been called.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

// Dropped returns how many notifications were dropped.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

// Publish implements state.Sink.
func (s *Sink) Publish(uri string, version *int, diagnostics []state.Diagnostic) {
	p := PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: make([]Diagnostic, 0, len(diagnostics)),
	}
	for _, d := range diagnostics {
		pos := Position{Line: d.Line, Character: d.Character}
		p.Diagnostics = append(p.Diagnostics, Diagnostic{
			Range:    Range{Start: pos, End: pos},
			Severity: d.Severity,
			Source:   d.Source,
			Message:  d.Message,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.drop(uri)
		return
	}
	select {
	case s.queue <- p:
	default:
		s.drop(uri)
	}
}

func (s *Sink) drop(uri string) {
	s.dropped.Add(1)
	recordDropped(context.Background())
	s.logger.Debug("Dropped diagnostics notification", "uri", uri)
}
