// Copyright 2025 Joseph Cumines

// Package transport carries inspector traffic: JSON-RPC 2.0 (MCP) over
// stdio, plain command lines from a console, and an HTTP listener with
// rate limiting and Prometheus-text metrics. It knows nothing about
// commands or snapshots; handlers are supplied by the server package.
package transport

import "encoding/json"

// JSON-RPC 2.0 standard error codes.
// See: https://www.jsonrpc.org/specification#error_object
const (
	// ErrCodeParseError indicates invalid JSON was received by the server.
	ErrCodeParseError = -32700

	// ErrCodeInvalidRequest indicates the JSON sent is not a valid Request object.
	ErrCodeInvalidRequest = -32600

	// ErrCodeMethodNotFound indicates the method does not exist or is not available.
	ErrCodeMethodNotFound = -32601

	// ErrCodeInvalidParams indicates invalid method parameter(s).
	ErrCodeInvalidParams = -32602

	// ErrCodeInternalError indicates an internal JSON-RPC error.
	ErrCodeInternalError = -32603
)

// Handler answers one JSON-RPC message. A nil response with a nil error
// means nothing is sent back (notifications).
type Handler func(*Message) (*Message, error)

// Transport is a bidirectional JSON-RPC 2.0 message stream.
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
type Transport interface {
	// ReadMessage blocks until a message is available. It returns
	// ErrClosed once the peer has gone away or Close was called.
	ReadMessage() (*Message, error)

	// WriteMessage writes one message. It fails once the transport is
	// closed.
	WriteMessage(msg *Message) error

	// Close is idempotent.
	Close() error

	IsClosed() bool
}

// Message represents a JSON-RPC 2.0 message.
//
// This is a union type that can represent either a Request or a Response:
//
// Request format:
//   - JSONRPC: "2.0" (required)
//   - Method: The method name (required)
//   - Params: Method parameters (optional)
//   - ID: Request identifier (optional; omit for notifications)
//
// Response format:
//   - JSONRPC: "2.0" (required)
//   - Result: Success result (mutually exclusive with Error)
//   - Error: Error object (mutually exclusive with Result)
//   - ID: Matches the request ID
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Message struct {
	// Error contains error details for failed requests.
	Error *ErrorObj `json:"error,omitempty"`

	// JSONRPC is always "2.0".
	JSONRPC string `json:"jsonrpc"`

	// Method is the name of the method to invoke. Requests only.
	Method string `json:"method,omitempty"`

	// ID is the request identifier; omitted for notifications.
	ID json.RawMessage `json:"id,omitempty"`

	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// IsNotification reports whether msg is a request that expects no
// response.
func (m *Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}

// ErrorObj represents a JSON-RPC 2.0 error object.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type ErrorObj struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Code    int             `json:"code"`
}

// NewErrorResponse builds an error response for the request id.
func NewErrorResponse(id json.RawMessage, code int, message string) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ErrorObj{Code: code, Message: message},
	}
}

// dispatch runs handler, converting a handler error into an internal
// error response.
func dispatch(handler Handler, msg *Message) *Message {
	response, err := handler(msg)
	if err != nil {
		if msg.IsNotification() {
			return nil
		}
		return NewErrorResponse(msg.ID, ErrCodeInternalError, err.Error())
	}
	return response
}

// Ensure StdioTransport implements Transport interface
var _ Transport = (*StdioTransport)(nil)
