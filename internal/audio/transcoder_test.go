package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTranscodeMissingBinary(t *testing.T) {
	t.Parallel()

	tr := NewFFmpegTranscoder("definitely-not-ffmpeg-xyz")
	_, err := tr.Transcode(context.Background(), "in.webm")
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("Transcode = %v, want ErrFFmpegNotFound", err)
	}

	if err := tr.Probe(context.Background()); !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("Probe = %v, want ErrFFmpegNotFound", err)
	}
}

func TestTranscodeReportsToolFailure(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho 'Invalid data found when processing input' >&2\nexit 1\n"
	if err := os.WriteFile(fake, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	tr := NewFFmpegTranscoder(fake)
	_, err := tr.Transcode(context.Background(), filepath.Join(dir, "in.webm"))

	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("Transcode = %v, want *TranscodeError", err)
	}
	if !strings.Contains(te.Stderr, "Invalid data") {
		t.Errorf("TranscodeError.Stderr = %q, want tool diagnostics", te.Stderr)
	}
}

func TestTranscodeSuccess(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	// The fake writes its last argument (the output path) and exits 0.
	script := "#!/bin/sh\nfor last; do :; done\necho RIFF > \"$last\"\n"
	if err := os.WriteFile(fake, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	src := filepath.Join(dir, "recording.webm")
	if err := os.WriteFile(src, []byte("opus"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	tr := NewFFmpegTranscoder(fake)
	out, err := tr.Transcode(context.Background(), src)
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}
	if filepath.Ext(out) != ".wav" {
		t.Errorf("output path = %q, want .wav extension", out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestSaveUpload(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "scratch")
	path, err := SaveUpload(dir, strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved upload: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("saved content = %q", data)
	}

	// Two uploads must never collide.
	other, err := SaveUpload(dir, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("second SaveUpload failed: %v", err)
	}
	if other == path {
		t.Error("uploads collided on the same scratch path")
	}
}
