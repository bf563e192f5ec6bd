package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8001" {
		t.Errorf("default port = %q, want 8001", cfg.Port)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("default ollama url = %q", cfg.OllamaURL)
	}
	if cfg.WhisperLanguage != "ja" {
		t.Errorf("default whisper language = %q, want ja", cfg.WhisperLanguage)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("default sample rate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("default session TTL = %v, want 2h", cfg.SessionTTL)
	}
	if cfg.AudioDir != "static/audio" {
		t.Errorf("default audio dir = %q, want static/audio", cfg.AudioDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_PORT", "9000")
	t.Setenv("OLLAMA_URL", "http://model-host:11434/")
	t.Setenv("OPENJTALK_GAIN_DB", "0")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("port = %q, want 9000", cfg.Port)
	}
	if cfg.OllamaURL != "http://model-host:11434" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.OllamaURL)
	}
	if cfg.GainDB != 0 {
		t.Errorf("gain = %v, want 0", cfg.GainDB)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("session TTL = %v, want 30m", cfg.SessionTTL)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("OPENJTALK_SAMPLING", "not-a-number")
	t.Setenv("OPENJTALK_SPEED", "fast")
	t.Setenv("SESSION_TTL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SampleRate != 48000 || cfg.Speed != 1.0 || cfg.SessionTTL != 2*time.Hour {
		t.Errorf("malformed values should fall back to defaults, got %d %v %v",
			cfg.SampleRate, cfg.Speed, cfg.SessionTTL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("OPENJTALK_SPEED", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for negative speed")
	}
}
