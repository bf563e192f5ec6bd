// Package audio handles per-turn scratch files and ffmpeg transcoding.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrFFmpegNotFound indicates the conversion tool is not installed.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// TranscodeError carries ffmpeg's diagnostic output when the tool runs but
// exits non-zero.
type TranscodeError struct {
	Stderr string
	Err    error
}

func (e *TranscodeError) Error() string {
	msg := fmt.Sprintf("transcode failed: %v", e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// Transcoder normalizes a recorded audio container into a mono 16 kHz WAV
// suitable for transcription.
type Transcoder interface {
	Transcode(ctx context.Context, srcPath string) (wavPath string, err error)
}

// FFmpegTranscoder shells out to ffmpeg.
type FFmpegTranscoder struct {
	bin string
}

// NewFFmpegTranscoder creates a transcoder using the given ffmpeg binary
// (name or path).
func NewFFmpegTranscoder(bin string) *FFmpegTranscoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegTranscoder{bin: bin}
}

// Transcode converts srcPath to a mono 16 kHz WAV next to the source file.
// The caller owns cleanup of both files.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, srcPath string) (string, error) {
	bin, err := exec.LookPath(t.bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFFmpegNotFound, t.bin)
	}

	out := strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ".wav"

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-i", srcPath,
		"-ac", "1", "-ar", "16000",
		"-f", "wav",
		out,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &TranscodeError{Stderr: tail(stderr.String(), 500), Err: err}
	}
	return out, nil
}

// Probe checks that ffmpeg is runnable. Used by the health endpoint.
func (t *FFmpegTranscoder) Probe(ctx context.Context) error {
	bin, err := exec.LookPath(t.bin)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, t.bin)
	}
	if err := exec.CommandContext(ctx, bin, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg -version: %w", err)
	}
	return nil
}

// SaveUpload writes an uploaded recording into dir under a unique name and
// returns its path. The caller owns cleanup.
func SaveUpload(dir string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+".webm")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

// tail keeps the last n bytes of diagnostic output; ffmpeg puts the
// interesting part at the end.
func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
