// Package auditlog provides structured logging capabilities for QUEST runs.
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/deepaksaipendyala/quest/internal/llm"
	"github.com/deepaksaipendyala/quest/internal/logutil"
)

// AuditLogger defines the interface for structured, machine-readable audit
// logging of a run's operations — distinct from the human-readable console
// log produced by logutil.LoggerInterface.
//
// Implementations must be safe for concurrent use.
type AuditLogger interface {
	// Log records a single structured audit entry.
	Log(ctx context.Context, entry AuditEntry) error

	// LogOp is a convenience wrapper around Log for the common case of
	// recording the start/end of a named operation. If err is non-nil,
	// status is forced to "Failure" and entry.Error is populated from it.
	LogOp(ctx context.Context, operation, status string, inputs map[string]interface{}, outputs map[string]interface{}, err error) error

	// LogLegacy and LogOpLegacy are context-less variants retained for
	// call sites that predate context propagation; they forward to the
	// context-aware methods using context.Background().
	LogLegacy(entry AuditEntry) error
	LogOpLegacy(operation, status string, inputs map[string]interface{}, outputs map[string]interface{}, err error) error

	// Close flushes and releases any resources held by the logger. Safe
	// to call multiple times.
	Close() error
}

// FileAuditLogger writes one JSON-encoded AuditEntry per line to a file.
type FileAuditLogger struct {
	file   *os.File
	logger logutil.LoggerInterface
	mu     sync.Mutex
}

// NewFileAuditLogger opens (creating if necessary) the audit log at path
// and returns a FileAuditLogger appending to it.
func NewFileAuditLogger(path string, logger logutil.LoggerInterface) (*FileAuditLogger, error) {
	if logger == nil {
		logger = logutil.NewLogger(logutil.InfoLevel, nil, "[auditlog] ")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Error("Failed to open audit log file %s: %v", path, err)
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	logger.Info("Opened audit log file at %s", path)

	return &FileAuditLogger{
		file:   f,
		logger: logger,
	}, nil
}

// Log implements AuditLogger.
func (l *FileAuditLogger) Log(ctx context.Context, entry AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if correlationID := logutil.GetCorrelationID(ctx); correlationID != "" {
		if entry.Inputs == nil {
			entry.Inputs = make(map[string]interface{})
		}
		entry.Inputs["correlation_id"] = correlationID
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("Failed to marshal audit entry to JSON: %v", err)
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("failed to write audit entry: logger is closed")
	}

	if _, err := l.file.Write(data); err != nil {
		l.logger.Error("Failed to write audit entry to file: %v", err)
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// LogOp implements AuditLogger.
func (l *FileAuditLogger) LogOp(ctx context.Context, operation, status string, inputs map[string]interface{}, outputs map[string]interface{}, opErr error) error {
	entry := AuditEntry{
		Operation: operation,
		Status:    status,
		Inputs:    inputs,
		Outputs:   outputs,
	}

	if opErr != nil {
		entry.Status = "Failure"
		entry.Message = fmt.Sprintf("%s failed", operation)
		errType := "GeneralError"
		if catErr, ok := llm.IsCategorizedError(opErr); ok {
			errType = fmt.Sprintf("Error:%s", catErr.Category().String())
		}
		entry.Error = &ErrorInfo{
			Message: opErr.Error(),
			Type:    errType,
		}
	} else {
		switch status {
		case "Success":
			entry.Message = fmt.Sprintf("%s completed successfully", operation)
		case "InProgress":
			entry.Message = fmt.Sprintf("%s started", operation)
		default:
			entry.Message = fmt.Sprintf("%s - %s", operation, status)
		}
	}

	return l.Log(ctx, entry)
}

// LogLegacy implements AuditLogger.
func (l *FileAuditLogger) LogLegacy(entry AuditEntry) error {
	return l.Log(context.Background(), entry)
}

// LogOpLegacy implements AuditLogger.
func (l *FileAuditLogger) LogOpLegacy(operation, status string, inputs map[string]interface{}, outputs map[string]interface{}, err error) error {
	return l.LogOp(context.Background(), operation, status, inputs, outputs, err)
}

// Close implements AuditLogger. Safe to call multiple times.
func (l *FileAuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	l.logger.Info("Closing audit log file")

	f := l.file
	l.file = nil

	if err := f.Close(); err != nil {
		l.logger.Error("Error closing audit log file: %v", err)
		return fmt.Errorf("failed to close audit log file: %w", err)
	}

	return nil
}

// NoOpAuditLogger is an AuditLogger that discards every entry. Used when a
// run has no configured audit log path.
type NoOpAuditLogger struct{}

// NewNoOpAuditLogger returns an AuditLogger that discards all entries.
func NewNoOpAuditLogger() *NoOpAuditLogger {
	return &NoOpAuditLogger{}
}

func (n *NoOpAuditLogger) Log(_ context.Context, _ AuditEntry) error { return nil }

func (n *NoOpAuditLogger) LogOp(_ context.Context, _, _ string, _ map[string]interface{}, _ map[string]interface{}, _ error) error {
	return nil
}

func (n *NoOpAuditLogger) LogLegacy(_ AuditEntry) error { return nil }

func (n *NoOpAuditLogger) LogOpLegacy(_, _ string, _ map[string]interface{}, _ map[string]interface{}, _ error) error {
	return nil
}

func (n *NoOpAuditLogger) Close() error { return nil }

var _ AuditLogger = (*FileAuditLogger)(nil)
var _ AuditLogger = (*NoOpAuditLogger)(nil)
