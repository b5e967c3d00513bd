package logging

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel parses LOG_LEVEL style names; unknown names select info.
func SetLevel(name string) {
	minLevel.Store(int32(ParseLevel(name)))
}

func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func enabled(l Level) bool {
	return int32(l) >= minLevel.Load()
}

type requestIDKey struct{}

// WithRequestID stores the request ID in ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request ID from ctx, or "" when absent.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging bound to a request
type Logger struct {
	requestID string
}

// New creates a logger with request context
func New(ctx context.Context) *Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{requestID: requestID}
}

func (l *Logger) Debugf(operation string, format string, args ...any) {
	l.printf(LevelDebug, "debug", operation, format, args...)
}

func (l *Logger) Infof(operation string, format string, args ...any) {
	l.printf(LevelInfo, "info", operation, format, args...)
}

func (l *Logger) Warnf(operation string, format string, args ...any) {
	l.printf(LevelWarn, "warn", operation, format, args...)
}

// Error logs an error with context
func (l *Logger) Error(operation string, err error) {
	if !enabled(LevelError) {
		return
	}
	log.Printf("[error] request_id=%s operation=%s error=%v", l.requestID, operation, err)
}

func (l *Logger) Errorf(operation string, format string, args ...any) {
	l.printf(LevelError, "error", operation, format, args...)
}

func (l *Logger) printf(lvl Level, tag, operation, format string, args ...any) {
	if !enabled(lvl) {
		return
	}
	log.Printf("["+tag+"] request_id=%s operation=%s "+format, append([]any{l.requestID, operation}, args...)...)
}
