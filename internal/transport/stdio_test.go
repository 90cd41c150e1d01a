// Copyright 2025 Joseph Cumines
//
// Stdio transport unit tests

package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestReadMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantMeth string
	}{
		{"valid request", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n", nil, "tools/list"},
		{"no trailing newline", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, nil, "ping"},
		{"valid notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n", nil, "notifications/initialized"},
		{"empty line", "\n", errEmptyLine, ""},
		{"eof", "", ErrClosed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewStdioTransport(strings.NewReader(tt.input), &bytes.Buffer{})

			msg, err := tr.ReadMessage()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadMessage() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && msg.Method != tt.wantMeth {
				t.Errorf("Method = %q, want %q", msg.Method, tt.wantMeth)
			}
		})
	}
}

func TestReadMessage_InvalidJSON(t *testing.T) {
	tr := NewStdioTransport(strings.NewReader("{not json}\n"), &bytes.Buffer{})
	_, err := tr.ReadMessage()
	var perr *parseError
	if !errors.As(err, &perr) {
		t.Fatalf("ReadMessage() error = %v, want parse error", err)
	}
}

func TestWriteMessage(t *testing.T) {
	var out bytes.Buffer
	tr := NewStdioTransport(strings.NewReader(""), &out)

	msg := &Message{JSONRPC: "2.0", ID: json.RawMessage(`7`), Result: json.RawMessage(`{"ok":true}`)}
	if err := tr.WriteMessage(msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	want := `{"jsonrpc":"2.0","id":7,"result":{"ok":true}}` + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestStdioTransport_Closed(t *testing.T) {
	tr := NewStdioTransport(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"x"}`+"\n"), &bytes.Buffer{})
	if tr.IsClosed() {
		t.Fatal("IsClosed() = true initially")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if !tr.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if _, err := tr.ReadMessage(); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadMessage() error = %v, want ErrClosed", err)
	}
	if err := tr.WriteMessage(&Message{JSONRPC: "2.0"}); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteMessage() error = %v, want ErrClosed", err)
	}
}

func TestStdioTransport_Serve(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"echo"}`,
		``,
		`{broken`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"fail"}`,
	}, "\n") + "\n"
	var out bytes.Buffer
	tr := NewStdioTransport(strings.NewReader(input), &out)

	var seen []string
	err := tr.Serve(func(msg *Message) (*Message, error) {
		seen = append(seen, msg.Method)
		switch {
		case msg.Method == "fail":
			return nil, errors.New("boom")
		case msg.IsNotification():
			return nil, nil
		}
		return &Message{JSONRPC: "2.0", ID: msg.ID, Result: json.RawMessage(`"pong"`)}, nil
	})
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	if got := strings.Join(seen, ","); got != "echo,notifications/initialized,fail" {
		t.Errorf("handled = %s", got)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("responses = %d, want 3:\n%s", len(lines), out.String())
	}
	var responses []Message
	for _, l := range lines {
		var m Message
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", l, err)
		}
		responses = append(responses, m)
	}
	if string(responses[0].Result) != `"pong"` {
		t.Errorf("first result = %s", responses[0].Result)
	}
	if responses[1].Error == nil || responses[1].Error.Code != ErrCodeParseError {
		t.Errorf("second = %+v, want parse error", responses[1].Error)
	}
	if responses[2].Error == nil || responses[2].Error.Code != ErrCodeInternalError || responses[2].Error.Message != "boom" {
		t.Errorf("third = %+v, want internal error boom", responses[2].Error)
	}
}

func TestMessage_IsNotification(t *testing.T) {
	tests := []struct {
		msg  Message
		want bool
	}{
		{Message{Method: "x"}, true},
		{Message{Method: "x", ID: json.RawMessage(`1`)}, false},
		{Message{Result: json.RawMessage(`1`)}, false},
	}
	for _, tt := range tests {
		if got := tt.msg.IsNotification(); got != tt.want {
			t.Errorf("IsNotification(%+v) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
