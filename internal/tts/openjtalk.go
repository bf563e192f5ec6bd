// Package tts synthesizes speech with the Open JTalk engine.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// gainEpsilon: gain control is only applied when the requested gain is
// meaningfully non-zero.
const gainEpsilon = 1e-6

// NotConfiguredError reports a missing prerequisite of the synthesis engine,
// naming the specific path that was not found.
type NotConfiguredError struct {
	What string // "binary", "dictionary" or "voice"
	Path string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("open_jtalk %s not found: %s", e.What, e.Path)
}

// SynthesisError carries the engine's exit code and diagnostic output.
type SynthesisError struct {
	ExitCode int
	Stderr   string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("open_jtalk failed: rc=%d: %s", e.ExitCode, e.Stderr)
}

// Options control one synthesis invocation.
type Options struct {
	Speed      float64 // 1.0 = normal speaking rate
	GainDB     float64
	SampleRate int
}

// Synthesizer renders text to a WAV file.
type Synthesizer interface {
	CheckReady() error
	Synthesize(ctx context.Context, text, outPath string, opts Options) error
}

// OpenJTalk shells out to the open_jtalk binary with an HTS voice model.
type OpenJTalk struct {
	bin   string
	dict  string
	voice string
}

// NewOpenJTalk creates a synthesizer. Paths are not validated here;
// CheckReady runs before every synthesis so a fixed installation is picked
// up without a restart.
func NewOpenJTalk(bin, dict, voice string) *OpenJTalk {
	if bin == "" {
		bin = "open_jtalk"
	}
	return &OpenJTalk{bin: bin, dict: dict, voice: voice}
}

// CheckReady verifies the engine binary, the pronunciation dictionary and
// the voice model are all present.
func (o *OpenJTalk) CheckReady() error {
	if _, err := exec.LookPath(o.bin); err != nil {
		return &NotConfiguredError{What: "binary", Path: o.bin}
	}
	if _, err := os.Stat(o.dict); err != nil {
		return &NotConfiguredError{What: "dictionary", Path: o.dict}
	}
	if _, err := os.Stat(o.voice); err != nil {
		return &NotConfiguredError{What: "voice", Path: o.voice}
	}
	return nil
}

// Synthesize renders text into outPath. The WAV is written to a temporary
// sibling file and renamed into place only on success, so a partially
// written file is never visible at the final path.
//
// Cleaning the text of characters that disrupt the engine is the caller's
// responsibility.
func (o *OpenJTalk) Synthesize(ctx context.Context, text, outPath string, opts Options) error {
	if err := o.CheckReady(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp := outPath + ".partial"
	defer os.Remove(tmp)

	args := []string{
		"-x", o.dict,
		"-m", o.voice,
		"-r", strconv.FormatFloat(opts.Speed, 'f', -1, 64),
		"-s", strconv.Itoa(opts.SampleRate),
		"-ow", tmp,
	}
	if math.Abs(opts.GainDB) > gainEpsilon {
		args = append(args, "-g", strconv.FormatFloat(opts.GainDB, 'f', -1, 64))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.bin, args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		}
		return &SynthesisError{ExitCode: code, Stderr: strings.TrimSpace(stderr.String())}
	}

	if err := os.Rename(tmp, outPath); err != nil {
		return fmt.Errorf("move synthesized wav into place: %w", err)
	}
	return nil
}
