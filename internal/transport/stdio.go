// Copyright 2025 Joseph Cumines
//
// Stdio transport for JSON-RPC 2.0 communication

package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned once a transport has no more messages to read or
// has been closed.
var ErrClosed = errors.New("transport closed")

// errEmptyLine is skipped silently by Serve.
var errEmptyLine = errors.New("empty line received")

// parseError wraps malformed input, which gets a parse error response
// rather than being dropped.
type parseError struct{ err error }

func (e *parseError) Error() string { return "failed to parse JSON: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// StdioTransport implements JSON-RPC 2.0 transport over stdin/stdout,
// one message per line.
type StdioTransport struct {
	reader  *bufio.Reader
	writer  io.Writer
	readMu  sync.Mutex
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(stdin io.Reader, stdout io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(stdin),
		writer: stdout,
	}
}

// ReadMessage reads one JSON-RPC 2.0 message.
func (t *StdioTransport) ReadMessage() (*Message, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	if t.closed.Load() {
		return nil, ErrClosed
	}

	line, err := t.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && strings.TrimSpace(line) != "") {
		if errors.Is(err, io.EOF) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("failed to read line: %w", err)
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errEmptyLine
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, &parseError{err}
	}

	return &msg, nil
}

// WriteMessage writes one JSON-RPC 2.0 message followed by a newline.
func (t *StdioTransport) WriteMessage(msg *Message) error {
	if t.closed.Load() {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the transport
func (t *StdioTransport) Close() error {
	t.closed.Store(true)
	return nil
}

// IsClosed returns whether the transport is closed
func (t *StdioTransport) IsClosed() bool {
	return t.closed.Load()
}

// Serve reads messages until stdin closes, answering each through
// handler. It returns nil on a clean EOF.
func (t *StdioTransport) Serve(handler Handler) error {
	for {
		msg, err := t.ReadMessage()
		var perr *parseError
		switch {
		case err == nil:
		case errors.Is(err, ErrClosed):
			log.Println("Stdin closed, exiting")
			return nil
		case errors.Is(err, errEmptyLine):
			continue
		case errors.As(err, &perr):
			log.Printf("Error reading message: %v", err)
			if werr := t.WriteMessage(NewErrorResponse(json.RawMessage("null"), ErrCodeParseError, perr.Error())); werr != nil {
				log.Printf("Error writing message: %v", werr)
			}
			continue
		default:
			return err
		}

		if response := dispatch(handler, msg); response != nil {
			if err := t.WriteMessage(response); err != nil {
				log.Printf("Error writing message: %v", err)
			}
		}
	}
}
