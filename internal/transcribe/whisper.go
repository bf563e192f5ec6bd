// Package transcribe converts normalized waveforms to text with Whisper.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Error carries the model's diagnostic output on any internal failure.
type Error struct {
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("transcription failed: %v", e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Transcriber converts a waveform file into text in a fixed language.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// WhisperCLI runs the whisper command-line tool. Inference is CPU/GPU-bound
// and may take seconds per turn; it is the dominant latency contributor.
type WhisperCLI struct {
	bin      string
	model    string
	language string
}

// NewWhisperCLI creates a transcriber for the given model size and language.
func NewWhisperCLI(bin, model, language string) *WhisperCLI {
	if bin == "" {
		bin = "whisper"
	}
	return &WhisperCLI{bin: bin, model: model, language: language}
}

// Transcribe runs Whisper on wavPath and returns the trimmed transcript.
// A run that produces no text yields an empty string, not an error.
func (w *WhisperCLI) Transcribe(ctx context.Context, wavPath string) (string, error) {
	outDir, err := os.MkdirTemp("", "whisper-out-")
	if err != nil {
		return "", &Error{Err: fmt.Errorf("create output dir: %w", err)}
	}
	defer os.RemoveAll(outDir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.bin,
		wavPath,
		"--model", w.model,
		"--language", w.language,
		"--output_format", "txt",
		"--output_dir", outDir,
		"--fp16", "False",
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	stem := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	data, err := os.ReadFile(filepath.Join(outDir, stem+".txt"))
	if err != nil {
		// Whisper exited cleanly without producing a transcript file:
		// treat as silence.
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &Error{Err: fmt.Errorf("read transcript: %w", err)}
	}

	return strings.TrimSpace(string(data)), nil
}
