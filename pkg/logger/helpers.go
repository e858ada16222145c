package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogUpstreamCall logs one signed API call
func LogUpstreamCall(l Logger, method, api string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"api":         api,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500 || statusCode == 0:
		l.ErrorWithFields("upstream call failed", fields)
	case statusCode >= 400:
		l.WarnWithFields("upstream call rejected", fields)
	default:
		l.DebugWithFields("upstream call completed", fields)
	}
}

// LogItemSkipped logs an item dropped from a batch
func LogItemSkipped(l Logger, kind, ref string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"item_kind": kind,
		"item_ref":  ref,
	})
	if err != nil {
		entry.WithError(err).Error("item skipped")
		return
	}
	entry.Warn("item skipped")
}

// LogExport logs a finished tabular export
func LogExport(l Logger, path string, rows int) {
	l.InfoWithFields("export written", map[string]interface{}{
		"path": path,
		"rows": rows,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
