package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Message is an inbound JSON-RPC 2.0 message. Params stay raw until the
// handler for Method decodes them.
type Message struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != "" && len(m.Id) > 0 && string(m.Id) != "null"
}

// IsNotification reports whether the message is a notification.
func (m *Message) IsNotification() bool {
	return m.Method != "" && !m.IsRequest()
}

// response is an outbound reply. Result is always present on success, even
// when it is null.
type response struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RpcError       `json:"error,omitempty"`
}

// notification is an outbound server notification.
type notification struct {
	Jsonrpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// RpcError represents a JSON-RPC error
type RpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface
func (e *RpcError) Error() string {
	return e.Message
}

// JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Conn reads and writes Content-Length framed messages. Writes are
// serialized so responses and notifications never interleave.
type Conn struct {
	reader *bufio.Reader
	mu     sync.Mutex
	writer io.Writer
}

// NewConn wraps a byte stream pair.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{reader: bufio.NewReader(r), writer: w}
}

// ReadMessage reads one framed message. It returns io.EOF when the stream
// ends cleanly between messages.
func (c *Conn) ReadMessage() (*Message, error) {
	contentLength := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && contentLength < 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid Content-Length %q", value)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, content); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(content, &msg); err != nil {
		return nil, &RpcError{Code: ParseError, Message: fmt.Sprintf("failed to parse message: %v", err)}
	}
	return &msg, nil
}

// writeMessage marshals v and writes it with its header
func (c *Conn) writeMessage(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(c.writer, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := c.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// WriteResult sends a successful response.
func (c *Conn) WriteResult(id json.RawMessage, result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return c.WriteError(id, InternalError, fmt.Sprintf("failed to marshal result: %v", err))
	}
	return c.writeMessage(&response{Jsonrpc: "2.0", Id: id, Result: data})
}

// WriteError sends an error response.
func (c *Conn) WriteError(id json.RawMessage, code int, message string) error {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return c.writeMessage(&response{
		Jsonrpc: "2.0",
		Id:      id,
		Error:   &RpcError{Code: code, Message: message},
	})
}

// Notify sends a server notification.
func (c *Conn) Notify(method string, params interface{}) error {
	return c.writeMessage(&notification{Jsonrpc: "2.0", Method: method, Params: params})
}
