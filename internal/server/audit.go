// Copyright 2025 Joseph Cumines
//
// Audit logging for command invocations

package server

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joeycumines/WinA11yInspector/internal/command"
)

// redacted replaces typed text in audit records.
const redacted = "[REDACTED]"

// AuditLogger writes one structured JSON record per command: verb,
// arguments (sendkeys text optionally redacted), outcome and duration.
// A disabled logger (no file) accepts calls and writes nothing.
type AuditLogger struct {
	logger     *slog.Logger
	closer     io.Closer
	redactKeys bool
	enabled    bool
	mu         sync.RWMutex
}

// NewAuditLogger creates an audit logger appending to filePath. If
// filePath is empty, audit logging is disabled.
func NewAuditLogger(filePath string, redactKeys bool) (*AuditLogger, error) {
	if filePath == "" {
		return &AuditLogger{}, nil
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	a := NewAuditLoggerWriter(file, redactKeys)
	a.closer = file
	return a, nil
}

// NewAuditLoggerWriter creates an enabled audit logger writing to w.
func NewAuditLoggerWriter(w io.Writer, redactKeys bool) *AuditLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &AuditLogger{
		logger:     slog.New(handler),
		redactKeys: redactKeys,
		enabled:    true,
	}
}

// Close closes the audit log file, if any, and disables the logger. Safe
// to call multiple times.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.enabled = false
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// IsEnabled returns true if audit logging is enabled.
func (a *AuditLogger) IsEnabled() bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// arguments renders cmd's arguments for the record.
func (a *AuditLogger) arguments(cmd command.Command) string {
	if cmd.Verb == command.VerbSendKeys && a.redactKeys {
		cmd.Arg = redacted
	}
	if cmd.Verb == 0 {
		return ""
	}
	return cmd.String()
}

// LogCommand records one command. Its signature matches command.Observer.
func (a *AuditLogger) LogCommand(cmd command.Command, res command.Result, elapsed time.Duration) {
	if !a.IsEnabled() {
		return
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.logger == nil {
		return
	}

	status := "ok"
	if !res.OK {
		status = res.Kind()
	}
	verb := res.Verb.String()
	if res.Verb == 0 {
		verb = "invalid"
	}

	attrs := []any{
		slog.String("verb", verb),
		slog.String("command", a.arguments(cmd)),
		slog.String("status", status),
		slog.Float64("duration_seconds", elapsed.Seconds()),
		slog.Time("timestamp", time.Now().UTC()),
	}
	if res.ElementID != "" {
		attrs = append(attrs, slog.String("element_id", res.ElementID))
	}
	a.logger.Info("command_invocation", attrs...)
}
