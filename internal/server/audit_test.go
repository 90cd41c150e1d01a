// Copyright 2025 Joseph Cumines
//
// Audit logger unit tests

package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/WinA11yInspector/internal/command"
)

func mustParse(t *testing.T, line string) command.Command {
	t.Helper()
	cmd, err := command.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", line, err)
	}
	return cmd
}

func decodeRecords(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var records []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	return records
}

func TestNewAuditLogger_Disabled(t *testing.T) {
	logger, err := NewAuditLogger("", true)
	if err != nil {
		t.Fatalf("NewAuditLogger('') error = %v", err)
	}
	if logger.IsEnabled() {
		t.Error("Expected logger to be disabled when no file path provided")
	}
	// Should not panic when disabled
	logger.LogCommand(mustParse(t, "click"), command.Result{OK: true}, time.Millisecond)
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewAuditLogger_InvalidPath(t *testing.T) {
	if _, err := NewAuditLogger("/nonexistent/directory/that/doesnt/exist/audit.log", true); err == nil {
		t.Error("Expected error for invalid path")
	}
}

func TestAuditLogger_NilLogger(t *testing.T) {
	var logger *AuditLogger
	if logger.IsEnabled() {
		t.Error("Nil logger should not be enabled")
	}
	logger.LogCommand(command.Command{}, command.Result{}, 0)
}

func TestAuditLogger_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")

	logger, err := NewAuditLogger(logPath, true)
	if err != nil {
		t.Fatalf("NewAuditLogger error = %v", err)
	}
	if !logger.IsEnabled() {
		t.Fatal("Expected logger to be enabled")
	}
	logger.LogCommand(mustParse(t, `click path=//button[@name="OK"]`), command.Result{
		Verb: command.VerbClick, OK: true, ElementID: "_1_2_3",
	}, 50*time.Millisecond)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if logger.IsEnabled() {
		t.Error("logger enabled after Close")
	}
	// dropped after close
	logger.LogCommand(mustParse(t, "inspect"), command.Result{OK: true}, 0)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	records := decodeRecords(t, content)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	want := map[string]any{
		"msg":              "command_invocation",
		"verb":             "click",
		"command":          `click path=//button[@name="OK"]`,
		"status":           "ok",
		"element_id":       "_1_2_3",
		"duration_seconds": 0.05,
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
	if _, ok := rec["timestamp"]; !ok {
		t.Error("timestamp missing")
	}

	if info, err := os.Stat(logPath); err == nil && info.Mode().Perm()&0o077 != 0 {
		t.Errorf("audit log mode = %v, want owner-only", info.Mode().Perm())
	}
}

func TestAuditLogger_Redaction(t *testing.T) {
	tests := []struct {
		name    string
		redact  bool
		line    string
		want    string
		exclude string
	}{
		{"redacted", true, "sendkeys path=//edit hunter2", "sendkeys path=//edit [REDACTED]", "hunter2"},
		{"kept", false, "sendkeys hunter2", "sendkeys hunter2", ""},
		{"other verbs untouched", true, "getprop path=//edit value", "getprop path=//edit value", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewAuditLoggerWriter(&buf, tt.redact)
			cmd := mustParse(t, tt.line)
			logger.LogCommand(cmd, command.Result{Verb: cmd.Verb, OK: true}, time.Millisecond)

			records := decodeRecords(t, buf.Bytes())
			if len(records) != 1 || records[0]["command"] != tt.want {
				t.Errorf("records = %v, want command %q", records, tt.want)
			}
			if tt.exclude != "" && strings.Contains(buf.String(), tt.exclude) {
				t.Errorf("log leaks %q: %s", tt.exclude, buf.String())
			}
			if !strings.HasSuffix(tt.line, cmd.Arg) {
				t.Errorf("caller's command was modified: %+v", cmd)
			}
		})
	}
}

func TestAuditLogger_StatusValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLoggerWriter(&buf, true)

	logger.LogCommand(command.Command{}, command.Result{Err: command.ErrUnknownVerb}, 0)
	logger.LogCommand(mustParse(t, "click"), command.Result{Verb: command.VerbClick, Err: command.ErrNoProcessSelected}, 0)

	records := decodeRecords(t, buf.Bytes())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["verb"] != "invalid" || records[0]["status"] != command.KindUnknownVerb || records[0]["command"] != "" {
		t.Errorf("parse failure record = %v", records[0])
	}
	if records[1]["status"] != command.KindNoProcessSelected {
		t.Errorf("failure record = %v", records[1])
	}
	if _, ok := records[1]["element_id"]; ok {
		t.Error("element_id present without an element")
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewAuditLogger(logPath, true)
	if err != nil {
		t.Fatalf("NewAuditLogger error = %v", err)
	}

	const n = 50
	cmd := mustParse(t, "inspect")
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogCommand(cmd, command.Result{Verb: cmd.Verb, OK: true}, time.Millisecond)
		}()
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if got := len(decodeRecords(t, content)); got != n {
		t.Errorf("got %d records, want %d", got, n)
	}
}

func TestAuditLogger_FileAppendBehavior(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	for range 2 {
		logger, err := NewAuditLogger(logPath, true)
		if err != nil {
			t.Fatalf("NewAuditLogger error = %v", err)
		}
		logger.LogCommand(mustParse(t, "status"), command.Result{Verb: command.VerbStatus, OK: true}, 0)
		_ = logger.Close()
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile error = %v", err)
	}
	if got := len(decodeRecords(t, content)); got != 2 {
		t.Errorf("got %d records, want 2 (append, not truncate)", got)
	}
}
