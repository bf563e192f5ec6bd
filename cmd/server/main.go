// Mensetsu Coach - spoken mock-interview practice backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skamata/mensetsu-coach/internal/api"
	"github.com/skamata/mensetsu-coach/internal/audio"
	"github.com/skamata/mensetsu-coach/internal/config"
	"github.com/skamata/mensetsu-coach/internal/interview"
	"github.com/skamata/mensetsu-coach/internal/metrics"
	"github.com/skamata/mensetsu-coach/internal/ollama"
	"github.com/skamata/mensetsu-coach/internal/session"
	"github.com/skamata/mensetsu-coach/internal/transcribe"
	"github.com/skamata/mensetsu-coach/internal/tts"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"addr", cfg.Addr(),
		"ollama_url", cfg.OllamaURL,
		"ollama_model", cfg.OllamaModel,
		"whisper_model", cfg.WhisperModel,
		"session_ttl", cfg.SessionTTL)

	for _, dir := range []string{cfg.AudioDir, cfg.ScratchDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	// Pipeline components.
	transcoder := audio.NewFFmpegTranscoder(cfg.FFmpegBin)
	stt := transcribe.NewWhisperCLI(cfg.WhisperBin, cfg.WhisperModel, cfg.WhisperLanguage)
	llm := ollama.New(cfg.OllamaURL, cfg.OllamaModel)
	synth := tts.NewOpenJTalk(cfg.OpenJTalkBin, cfg.OpenJTalkDict, cfg.OpenJTalkVoice)

	// External tools are allowed to be absent at startup; affected turns
	// degrade or fail individually and /health reports the state.
	if err := transcoder.Probe(context.Background()); err != nil {
		slog.Warn("ffmpeg not available, turns will fail until installed", "error", err)
	}
	if err := synth.CheckReady(); err != nil {
		slog.Warn("Open JTalk not ready, turns will be text-only", "error", err)
	}

	translog, err := interview.NewTranscriptLogger(interview.TranscriptLogConfig{
		Enabled:   cfg.TranscriptLog.Enabled,
		Dir:       cfg.TranscriptLog.Dir,
		QueueSize: cfg.TranscriptLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = translog.Close() }()

	store := session.NewMemoryStore()
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	svc := interview.NewService(store, transcoder, stt, llm, synth, interview.Config{
		ScratchDir:     cfg.ScratchDir,
		AudioDir:       cfg.AudioDir,
		AudioURLPrefix: "/static/audio",
		Speed:          cfg.Speed,
		GainDB:         cfg.GainDB,
		SampleRate:     cfg.SampleRate,
	}, appMetrics, translog)

	handler := api.NewHandler(svc, transcoder, synth, cfg.OllamaURL, cfg.OllamaModel, cfg.AudioDir)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	handler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	// Synthesized audio is served from the static dir.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		// Turns block on model inference; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartSweeper(ctx, store, cfg.SessionTTL, svc.OnEvicted)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
