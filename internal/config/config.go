// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Host string
	Port string

	// Ollama backend.
	OllamaURL   string
	OllamaModel string

	// Whisper transcription.
	WhisperBin      string
	WhisperModel    string
	WhisperLanguage string

	// Open JTalk synthesis.
	OpenJTalkBin   string
	OpenJTalkDict  string
	OpenJTalkVoice string
	SampleRate     int
	Speed          float64
	GainDB         float64

	FFmpegBin string

	// Directories. AudioDir lives under StaticDir so synthesized files are
	// served at /static/audio/.
	StaticDir  string
	AudioDir   string
	ScratchDir string

	SessionTTL time.Duration

	TranscriptLog TranscriptLogConfig
}

// TranscriptLogConfig controls NDJSON transcript logging.
type TranscriptLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	staticDir := getEnv("STATIC_DIR", "./static")

	cfg := &Config{
		Host: getEnv("BACKEND_HOST", "0.0.0.0"),
		Port: getEnv("BACKEND_PORT", "8001"),

		OllamaURL:   strings.TrimRight(getEnv("OLLAMA_URL", "http://localhost:11434"), "/"),
		OllamaModel: getEnv("OLLAMA_MODEL", "gpt-oss:20b"),

		WhisperBin:      getEnv("WHISPER_BIN", "whisper"),
		WhisperModel:    getEnv("WHISPER_MODEL", "large"),
		WhisperLanguage: getEnv("WHISPER_LANGUAGE", "ja"),

		OpenJTalkBin:   getEnv("OPENJTALK_BIN", "open_jtalk"),
		OpenJTalkDict:  getEnv("OPENJTALK_DICT", "/var/lib/mecab/dic/open-jtalk/naist-jdic"),
		OpenJTalkVoice: getEnv("OPENJTALK_VOICE", "/usr/share/hts-voice/nitech-jp-atr503-m001/nitech_jp_atr503_m001.htsvoice"),
		SampleRate:     getEnvInt("OPENJTALK_SAMPLING", 48000),
		Speed:          getEnvFloat("OPENJTALK_SPEED", 1.0),
		GainDB:         getEnvFloat("OPENJTALK_GAIN_DB", 4.0),

		FFmpegBin: getEnv("FFMPEG_BIN", "ffmpeg"),

		StaticDir:  staticDir,
		AudioDir:   getEnv("AUDIO_DIR", filepath.Join(staticDir, "audio")),
		ScratchDir: getEnv("SCRATCH_DIR", "./_tmp"),

		SessionTTL: getEnvDuration("SESSION_TTL", 2*time.Hour),

		TranscriptLog: TranscriptLogConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/transcripts"),
			QueueSize: getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("BACKEND_PORT cannot be empty")
	}
	if c.OllamaURL == "" {
		return fmt.Errorf("OLLAMA_URL cannot be empty")
	}
	if c.OllamaModel == "" {
		return fmt.Errorf("OLLAMA_MODEL cannot be empty")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("OPENJTALK_SAMPLING must be > 0")
	}
	if c.Speed <= 0 {
		return fmt.Errorf("OPENJTALK_SPEED must be > 0")
	}
	if c.AudioDir == "" {
		return fmt.Errorf("AUDIO_DIR cannot be empty")
	}
	if c.ScratchDir == "" {
		return fmt.Errorf("SCRATCH_DIR cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.TranscriptLog.Enabled && c.TranscriptLog.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	if c.TranscriptLog.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
