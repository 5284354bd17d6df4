// Package lsp is the language server transport: Content-Length framed
// JSON-RPC over a byte stream, one dispatch loop feeding state.State, and a
// bounded outbound notification queue.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"jls/internal/document"
	jlserrors "jls/internal/errors"
	"jls/internal/slogutil"
	"jls/internal/state"
	"jls/internal/version"
	"jls/internal/watcher"
)

// ServerNotInitialized is returned for requests that arrive before initialize.
const ServerNotInitialized = -32002

// ErrExitWithoutShutdown is returned by Run when the client sends exit
// without a preceding shutdown.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Server dispatches client messages to the session state, one at a time.
type Server struct {
	conn   *Conn
	state  *state.State
	sink   *Sink
	logger *slog.Logger

	manifests <-chan watcher.Change

	initialized  bool
	shuttingDown bool
}

// NewServer creates a server. sink must be the sink the state publishes to.
func NewServer(conn *Conn, st *state.State, sink *Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Server{conn: conn, state: st, sink: sink, logger: logger}
}

// WatchManifests makes Run refresh the classpath whenever a change arrives
// on ch. Refreshes run on the dispatch loop between messages.
func (s *Server) WatchManifests(ch <-chan watcher.Change) {
	s.manifests = ch
}

type readResult struct {
	msg *Message
	err error
}

// Run processes messages until exit or end of input. Queued notifications
// are flushed before it returns.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Language server starting",
		"version", version.Version,
	)
	s.sink.Start()
	defer s.sink.Close()

	done := make(chan struct{})
	defer close(done)
	incoming := make(chan readResult)
	go func() {
		for {
			msg, err := s.conn.ReadMessage()
			select {
			case incoming <- readResult{msg, err}:
			case <-done:
				return
			}
			if err != nil && !isParseError(err) {
				return
			}
		}
	}()

	for {
		var in readResult
		select {
		case in = <-incoming:
		case change := <-s.manifests:
			s.refreshForManifests(ctx, change)
			continue
		}

		msg, err := in.msg, in.err
		if err != nil {
			if err == io.EOF {
				s.logger.Info("Language server shutting down (EOF)")
				return nil
			}
			var rpcErr *RpcError
			if errors.As(err, &rpcErr) {
				s.logger.Error("Error parsing message", "error", err.Error())
				_ = s.conn.WriteError(nil, rpcErr.Code, rpcErr.Message)
				continue
			}
			s.logger.Error("Error reading message", "error", err.Error())
			return err
		}

		recordMessage(ctx, msg.Method)

		if msg.Method == "exit" {
			if !s.shuttingDown {
				s.logger.Warn("Exit without shutdown")
				return ErrExitWithoutShutdown
			}
			s.logger.Info("Language server exiting")
			return nil
		}

		switch {
		case msg.IsRequest():
			s.handleRequest(ctx, msg)
		case msg.IsNotification():
			s.handleNotification(ctx, msg)
		default:
			if len(msg.Id) > 0 {
				_ = s.conn.WriteError(msg.Id, InvalidRequest, "Invalid message: not a request or notification")
			}
		}
	}
}

func isParseError(err error) bool {
	var rpcErr *RpcError
	return errors.As(err, &rpcErr)
}

func (s *Server) refreshForManifests(ctx context.Context, change watcher.Change) {
	if s.shuttingDown {
		return
	}
	s.logger.Info("Build manifest changed, refreshing classpath", "paths", change.Paths)
	stats := s.state.RefreshClasspath(ctx)
	s.logger.Info("Classpath refreshed",
		"entries", stats.Entries,
		"classes", stats.Decoded,
	)
}

func (s *Server) handleRequest(ctx context.Context, msg *Message) {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", string(msg.Id),
	)

	if !s.initialized && msg.Method != "initialize" {
		s.writeError(msg, ServerNotInitialized, "server not initialized")
		return
	}
	if s.shuttingDown {
		s.writeError(msg, InvalidRequest, "server is shutting down")
		return
	}

	var (
		result interface{}
		rpcErr *RpcError
	)
	switch msg.Method {
	case "initialize":
		result, rpcErr = s.initialize(msg.Params)
	case "shutdown":
		s.shuttingDown = true
		s.logger.Info("Shutdown requested")
	case "textDocument/definition":
		result, rpcErr = s.definition(msg.Params)
	case "textDocument/hover":
		result, rpcErr = s.hover(msg.Params)
	case "workspace/executeCommand":
		result, rpcErr = s.executeCommand(ctx, msg.Params)
	default:
		rpcErr = &RpcError{Code: MethodNotFound, Message: fmt.Sprintf("Method not found: %s", msg.Method)}
	}

	if rpcErr != nil {
		s.writeError(msg, rpcErr.Code, rpcErr.Message)
		return
	}
	if err := s.conn.WriteResult(msg.Id, result); err != nil {
		s.logger.Error("Error writing response",
			"method", msg.Method,
			"error", err.Error(),
		)
	}
}

func (s *Server) writeError(msg *Message, code int, message string) {
	if err := s.conn.WriteError(msg.Id, code, message); err != nil {
		s.logger.Error("Error writing response",
			"method", msg.Method,
			"error", err.Error(),
		)
	}
}

func (s *Server) handleNotification(ctx context.Context, msg *Message) {
	s.logger.Debug("Handling notification",
		"method", msg.Method,
	)
	if !s.initialized {
		return
	}

	switch msg.Method {
	case "initialized":
	case "textDocument/didOpen":
		var p DidOpenTextDocumentParams
		if s.decode(msg, &p) {
			s.state.Open(ctx, p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)
		}
	case "textDocument/didChange":
		var p DidChangeTextDocumentParams
		if s.decode(msg, &p) {
			s.state.Change(ctx, p.TextDocument.URI, p.TextDocument.Version, toChanges(p.ContentChanges))
		}
	case "textDocument/didSave":
		var p DidSaveTextDocumentParams
		if s.decode(msg, &p) {
			s.state.Save(ctx, p.TextDocument.URI)
		}
	case "textDocument/didClose":
		var p DidCloseTextDocumentParams
		if s.decode(msg, &p) {
			s.state.Close(p.TextDocument.URI)
		}
	default:
		s.logger.Debug("Ignoring notification", "method", msg.Method)
	}
}

func (s *Server) decode(msg *Message, v interface{}) bool {
	if err := json.Unmarshal(msg.Params, v); err != nil {
		s.logger.Warn("Invalid notification params",
			"method", msg.Method,
			"error", err.Error(),
		)
		return false
	}
	return true
}

func (s *Server) initialize(raw json.RawMessage) (interface{}, *RpcError) {
	var p InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, invalidParams(err)
		}
	}
	s.initialized = true
	if p.RootURI != nil {
		s.logger.Info("Client initialized", "rootUri", *p.RootURI)
	}
	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncIncremental,
				Save:      true,
			},
			DefinitionProvider: true,
			HoverProvider:      true,
			ExecuteCommandProvider: ExecuteCommandOptions{
				Commands: []string{CommandRefreshClasspath, CommandCompileAll},
			},
		},
		ServerInfo: ServerInfo{Name: "jls", Version: version.Version},
	}, nil
}

func (s *Server) definition(raw json.RawMessage) (interface{}, *RpcError) {
	var p TextDocumentPositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	loc, ok, err := s.state.Definition(p.TextDocument.URI, toDocPosition(p.Position))
	if err != nil {
		return nil, stateError(err)
	}
	if !ok {
		return nil, nil
	}
	pos := Position{Line: loc.Line, Character: loc.Character}
	return Location{URI: loc.URI, Range: Range{Start: pos, End: pos}}, nil
}

func (s *Server) hover(raw json.RawMessage) (interface{}, *RpcError) {
	var p TextDocumentPositionParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	text, ok, err := s.state.Hover(p.TextDocument.URI, toDocPosition(p.Position))
	if err != nil {
		return nil, stateError(err)
	}
	if !ok {
		return nil, nil
	}
	return Hover{Contents: MarkupContent{Kind: "markdown", Value: text}}, nil
}

func (s *Server) executeCommand(ctx context.Context, raw json.RawMessage) (interface{}, *RpcError) {
	var p ExecuteCommandParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	switch p.Command {
	case CommandRefreshClasspath:
		stats := s.state.RefreshClasspath(ctx)
		s.logger.Info("Classpath refreshed",
			"entries", stats.Entries,
			"classes", stats.Decoded,
		)
		return nil, nil
	case CommandCompileAll:
		s.state.CompileAll(ctx)
		return nil, nil
	default:
		return nil, &RpcError{Code: InvalidParams, Message: fmt.Sprintf("unknown command: %s", p.Command)}
	}
}

func invalidParams(err error) *RpcError {
	return &RpcError{Code: InvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
}

func stateError(err error) *RpcError {
	if jlserrors.CodeOf(err) == jlserrors.DocumentNotOpen {
		return &RpcError{Code: InvalidParams, Message: err.Error()}
	}
	return &RpcError{Code: InternalError, Message: err.Error()}
}

func toDocPosition(p Position) document.Position {
	return document.Position{Line: p.Line, Character: p.Character}
}

func toChanges(events []TextDocumentContentChangeEvent) []state.Change {
	changes := make([]state.Change, 0, len(events))
	for _, e := range events {
		c := state.Change{Text: e.Text}
		if e.Range != nil {
			c.Range = &state.Range{
				Start: toDocPosition(e.Range.Start),
				End:   toDocPosition(e.Range.End),
			}
		}
		changes = append(changes, c)
	}
	return changes
}
