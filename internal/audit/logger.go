// Package audit implements the structured event sink (C12): a bounded
// buffer feeding a background writer goroutine so that LogEvent/LogError
// never block callers beyond the buffer, dropping with a counter increment
// on overflow.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/chatbuddy/core/internal/observability"
)

// Sink receives AuditRecords from the background writer. The default Sink
// logs via slog; a deployment may swap in one that ships to a durable
// store.
type Sink interface {
	Write(record domain.AuditRecord)
}

// SlogSink writes audit records as structured slog entries.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink builds a Sink over logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(record domain.AuditRecord) {
	level := slog.LevelInfo
	switch record.Severity {
	case domain.AuditWarning:
		level = slog.LevelWarn
	case domain.AuditError:
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, record.Kind,
		slog.String("subsystem", record.Subsystem),
		slog.String("user_id", record.UserID),
		slog.String("session_id", record.SessionID),
		slog.Any("payload", record.Payload),
		slog.String("message", record.Message),
	)
}

// Logger implements domain.AuditLogger over a bounded channel drained by a
// single background goroutine.
type Logger struct {
	buf  chan domain.AuditRecord
	sink Sink
	done chan struct{}
}

// NewLogger builds an audit logger with a buffer of size bufferSize,
// writing every record to sink from a single background goroutine. Call
// Close to drain and stop the background goroutine during shutdown.
func NewLogger(sink Sink, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = 4096
	}
	l := &Logger{
		buf:  make(chan domain.AuditRecord, bufferSize),
		sink: sink,
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Logger) run() {
	defer close(l.done)
	for record := range l.buf {
		l.sink.Write(record)
	}
}

// Close stops accepting new records and waits for the buffer to drain.
func (l *Logger) Close() {
	close(l.buf)
	<-l.done
}

func (l *Logger) enqueue(record domain.AuditRecord) {
	select {
	case l.buf <- record:
	default:
		observability.AuditDroppedTotal.Inc()
	}
	observability.AuditRecordsTotal.WithLabelValues(string(record.Severity)).Inc()
}

// LogEvent implements domain.AuditLogger.
func (l *Logger) LogEvent(ctx domain.Context, kind string, severity domain.AuditSeverity, userID, sessionID, subsystem string, payload map[string]any) {
	l.enqueue(domain.AuditRecord{
		Timestamp: time.Now(),
		Kind:      kind,
		Severity:  severity,
		UserID:    userID,
		SessionID: sessionID,
		Subsystem: subsystem,
		Payload:   payload,
	})
}

// LogError implements domain.AuditLogger.
func (l *Logger) LogError(ctx domain.Context, kind string, message string, userID, sessionID, subsystem string, payload map[string]any) {
	l.enqueue(domain.AuditRecord{
		Timestamp: time.Now(),
		Kind:      kind,
		Severity:  domain.AuditError,
		UserID:    userID,
		SessionID: sessionID,
		Subsystem: subsystem,
		Payload:   payload,
		Message:   message,
	})
}

var _ domain.AuditLogger = (*Logger)(nil)
