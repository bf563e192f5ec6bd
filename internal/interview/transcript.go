package interview

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TranscriptEvent is one appended message, mirrored to disk for later
// review. The in-memory session log stays authoritative; this is an audit
// trail, not persistence.
type TranscriptEvent struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

// TranscriptLogConfig controls NDJSON transcript logging.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// TranscriptLogger appends conversation messages to per-session NDJSON
// files from a background goroutine. Writes never block a turn: when the
// queue is full the event is dropped with a warning.
type TranscriptLogger struct {
	dir    string
	queue  chan TranscriptEvent
	done   chan struct{}
	logger *slog.Logger
}

// NewTranscriptLogger creates the logger and starts its writer goroutine.
// Returns nil (a valid no-op logger) when logging is disabled.
func NewTranscriptLogger(cfg TranscriptLogConfig, logger *slog.Logger) (*TranscriptLogger, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	l := &TranscriptLogger{
		dir:    cfg.Dir,
		queue:  make(chan TranscriptEvent, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.run()
	return l, nil
}

// Log enqueues one event. Safe to call on a nil logger.
func (l *TranscriptLogger) Log(ev TranscriptEvent) {
	if l == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case l.queue <- ev:
	default:
		l.logger.Warn("Transcript queue full, dropping event",
			"session_id", ev.SessionID, "role", ev.Role)
	}
}

// Close drains pending events and stops the writer goroutine. Safe to call
// on a nil logger.
func (l *TranscriptLogger) Close() error {
	if l == nil {
		return nil
	}
	close(l.queue)
	<-l.done
	return nil
}

func (l *TranscriptLogger) run() {
	defer close(l.done)
	for ev := range l.queue {
		if err := l.write(ev); err != nil {
			l.logger.Warn("Failed to write transcript event",
				"session_id", ev.SessionID, "error", err)
		}
	}
}

func (l *TranscriptLogger) write(ev TranscriptEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	path := filepath.Join(l.dir, ev.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append transcript line: %w", err)
	}
	return nil
}
