package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fakeEngine = `#!/bin/sh
prev=""
ow=""
for a in "$@"; do
  if [ "$prev" = "-ow" ]; then ow="$a"; fi
  prev="$a"
done
echo "$@" > "$ow.args"
cat > /dev/null
printf 'RIFF' > "$ow"
`

func newTestEngine(t *testing.T, script string) (*OpenJTalk, string) {
	t.Helper()
	dir := t.TempDir()

	bin := filepath.Join(dir, "open_jtalk")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	dict := filepath.Join(dir, "naist-jdic")
	voice := filepath.Join(dir, "mei.htsvoice")
	for _, p := range []string{dict, voice} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return NewOpenJTalk(bin, dict, voice), dir
}

func TestCheckReadyReportsMissingPath(t *testing.T) {
	t.Parallel()

	o, dir := newTestEngine(t, fakeEngine)
	if err := o.CheckReady(); err != nil {
		t.Fatalf("CheckReady with everything present = %v", err)
	}

	missingDict := NewOpenJTalk(filepath.Join(dir, "open_jtalk"), filepath.Join(dir, "no-dic"), filepath.Join(dir, "mei.htsvoice"))
	err := missingDict.CheckReady()
	var nce *NotConfiguredError
	if !errors.As(err, &nce) {
		t.Fatalf("CheckReady = %v, want *NotConfiguredError", err)
	}
	if nce.What != "dictionary" || !strings.Contains(nce.Error(), "no-dic") {
		t.Errorf("error should name the missing dictionary path: %v", nce)
	}

	missingBin := NewOpenJTalk(filepath.Join(dir, "no-bin"), filepath.Join(dir, "naist-jdic"), filepath.Join(dir, "mei.htsvoice"))
	if err := missingBin.CheckReady(); !errors.As(err, &nce) || nce.What != "binary" {
		t.Errorf("CheckReady = %v, want binary NotConfiguredError", err)
	}
}

func TestSynthesizeWritesAtomically(t *testing.T) {
	t.Parallel()

	o, dir := newTestEngine(t, fakeEngine)
	out := filepath.Join(dir, "audio", "sess-123.wav")

	err := o.Synthesize(context.Background(), "こんにちは", out, Options{Speed: 1.0, GainDB: 4.0, SampleRate: 48000})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output wav missing: %v", err)
	}
	if _, err := os.Stat(out + ".partial"); !os.IsNotExist(err) {
		t.Error("temporary file left behind at final location")
	}

	args, err := os.ReadFile(out + ".partial.args")
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	if !strings.Contains(string(args), "-g 4") {
		t.Errorf("gain of 4dB should be passed: %q", args)
	}
	if !strings.Contains(string(args), "-s 48000") || !strings.Contains(string(args), "-r 1") {
		t.Errorf("sample rate and speed should be passed: %q", args)
	}
}

func TestSynthesizeSkipsNegligibleGain(t *testing.T) {
	t.Parallel()

	o, dir := newTestEngine(t, fakeEngine)
	out := filepath.Join(dir, "out.wav")

	if err := o.Synthesize(context.Background(), "テスト", out, Options{Speed: 1.0, SampleRate: 48000}); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	args, err := os.ReadFile(out + ".partial.args")
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	if strings.Contains(string(args), "-g") {
		t.Errorf("zero gain must not add -g: %q", args)
	}
}

func TestSynthesizeEngineFailure(t *testing.T) {
	t.Parallel()

	o, dir := newTestEngine(t, "#!/bin/sh\necho 'hts_engine error' >&2\nexit 7\n")
	out := filepath.Join(dir, "out.wav")

	err := o.Synthesize(context.Background(), "テスト", out, Options{Speed: 1.0, SampleRate: 48000})
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("Synthesize = %v, want *SynthesisError", err)
	}
	if se.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", se.ExitCode)
	}
	if !strings.Contains(se.Stderr, "hts_engine error") {
		t.Errorf("Stderr = %q, want engine diagnostics", se.Stderr)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("failed synthesis must not expose a file at the final path")
	}
}
