package interview

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTranscriptLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewTranscriptLogger(TranscriptLogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(TranscriptEvent{SessionID: "sess-1", Role: "user", Content: "志望動機は明確です"})

	path := filepath.Join(dir, "sess-1.ndjson")
	line := waitForLogLine(t, path)

	var got TranscriptEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Content != "志望動機は明確です" {
		t.Fatalf("unexpected Content: %q", got.Content)
	}
	if got.Role != "user" {
		t.Fatalf("unexpected Role: %q", got.Role)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be populated")
	}
}

func TestTranscriptLoggerSeparatesSessions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewTranscriptLogger(TranscriptLogConfig{Enabled: true, Dir: dir, QueueSize: 16}, slog.Default())
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}

	logger.Log(TranscriptEvent{SessionID: "a", Role: "user", Content: "one"})
	logger.Log(TranscriptEvent{SessionID: "b", Role: "user", Content: "two"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, sid := range []string{"a", "b"} {
		if _, err := os.Stat(filepath.Join(dir, sid+".ndjson")); err != nil {
			t.Errorf("missing transcript for session %s: %v", sid, err)
		}
	}
}

func TestTranscriptLoggerDisabledIsNil(t *testing.T) {
	t.Parallel()

	logger, err := NewTranscriptLogger(TranscriptLogConfig{Enabled: false}, slog.Default())
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}
	if logger != nil {
		t.Fatal("disabled config should return a nil logger")
	}

	// The nil logger must be safe to use.
	logger.Log(TranscriptEvent{SessionID: "x"})
	if err := logger.Close(); err != nil {
		t.Fatalf("nil Close failed: %v", err)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
