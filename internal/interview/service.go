// Package interview implements the per-turn processing pipeline and the
// session lifecycle for the mock-interview coach.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skamata/mensetsu-coach/internal/audio"
	"github.com/skamata/mensetsu-coach/internal/domain"
	"github.com/skamata/mensetsu-coach/internal/metrics"
	"github.com/skamata/mensetsu-coach/internal/ollama"
	"github.com/skamata/mensetsu-coach/internal/session"
	"github.com/skamata/mensetsu-coach/internal/transcribe"
	"github.com/skamata/mensetsu-coach/internal/tts"
)

// ErrUpload indicates the uploaded recording could not be received or
// written to scratch storage.
var ErrUpload = errors.New("upload failed")

// ChatClient generates a reply from the full ordered message log.
type ChatClient interface {
	Chat(ctx context.Context, messages []ollama.Message) (string, error)
}

// Config holds the pipeline settings the service needs per turn.
type Config struct {
	ScratchDir string
	AudioDir   string
	// AudioURLPrefix is the public path under which AudioDir is served,
	// e.g. "/static/audio".
	AudioURLPrefix string

	Speed      float64
	GainDB     float64
	SampleRate int
}

// Service drives one turn through transcode, transcription, reply
// generation and synthesis, and owns session start/end.
type Service struct {
	store      session.Store
	transcoder audio.Transcoder
	stt        transcribe.Transcriber
	llm        ChatClient
	tts        tts.Synthesizer
	cfg        Config
	metrics    *metrics.Metrics
	translog   *TranscriptLogger
}

// NewService wires the pipeline components. translog may be nil when
// transcript logging is disabled.
func NewService(
	store session.Store,
	transcoder audio.Transcoder,
	stt transcribe.Transcriber,
	llm ChatClient,
	synth tts.Synthesizer,
	cfg Config,
	m *metrics.Metrics,
	translog *TranscriptLogger,
) *Service {
	return &Service{
		store:      store,
		transcoder: transcoder,
		stt:        stt,
		llm:        llm,
		tts:        synth,
		cfg:        cfg,
		metrics:    m,
		translog:   translog,
	}
}

// StartSession creates a session seeded with the interviewer persona and
// the opening question for the chosen track.
func (s *Service) StartSession(track domain.Track, field, target string) (*domain.Session, error) {
	sess, err := s.store.Create(track, field, target)
	if err != nil {
		return nil, err
	}

	s.metrics.SessionsCreated.Inc()
	s.metrics.ActiveSessions.Set(float64(s.store.Len()))

	for _, m := range sess.Messages {
		s.translog.Log(TranscriptEvent{SessionID: sess.ID, Role: string(m.Role), Content: m.Content})
	}

	slog.Info("Session started", "session_id", sess.ID, "track", sess.Track, "target", target)
	return sess, nil
}

// Turn processes one recorded answer end to end and returns the textual
// result plus an audio reference. Synthesis failure degrades the turn to
// text-only instead of failing it; every earlier stage is fatal.
func (s *Service) Turn(ctx context.Context, sessionID string, upload io.Reader) (*domain.TurnResult, error) {
	release, err := s.store.AcquireTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.metrics.TurnsStarted.Inc()
	turnStart := time.Now()

	// Scratch files are removed on every exit path, fatal stages included.
	var scratch []string
	defer func() {
		for _, p := range scratch {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				slog.Warn("Failed to remove scratch file", "path", p, "error", err)
			}
		}
	}()

	src, err := audio.SaveUpload(s.cfg.ScratchDir, upload)
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(metrics.StageUpload).Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	scratch = append(scratch, src)

	wav, err := s.timedTranscode(ctx, src)
	if wav != "" {
		scratch = append(scratch, wav)
	}
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(metrics.StageTranscode).Inc()
		return nil, err
	}

	userText, err := s.timedTranscribe(ctx, wav)
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(metrics.StageTranscribe).Inc()
		return nil, err
	}

	// The transcript is committed before reply generation so the log
	// reflects what was said even if the backend fails below.
	if err := s.store.Append(sessionID, domain.RoleUser, userText); err != nil {
		return nil, err
	}
	s.translog.Log(TranscriptEvent{SessionID: sessionID, Role: string(domain.RoleUser), Content: userText})

	msgs, err := s.store.Messages(sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := s.timedChat(ctx, msgs)
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(metrics.StageReply).Inc()
		return nil, err
	}

	if err := s.store.Append(sessionID, domain.RoleAssistant, reply); err != nil {
		return nil, err
	}
	s.translog.Log(TranscriptEvent{SessionID: sessionID, Role: string(domain.RoleAssistant), Content: reply})

	audioURL := s.synthesize(ctx, sessionID, reply)

	s.metrics.TurnsCompleted.Inc()
	slog.Info("Turn completed",
		"session_id", sessionID,
		"duration", time.Since(turnStart),
		"audio", audioURL != "")

	return &domain.TurnResult{
		UserText:      userText,
		AssistantText: reply,
		AudioURL:      audioURL,
	}, nil
}

// EndSession generates the debrief summary over a copy of the log and
// removes the session. Summary failures never surface to the caller; the
// fixed fallback text is returned instead.
func (s *Service) EndSession(ctx context.Context, sessionID string) (string, error) {
	release, err := s.store.AcquireTurn(sessionID)
	if err != nil {
		return "", err
	}
	defer release()

	msgs, err := s.store.Messages(sessionID)
	if err != nil {
		return "", err
	}
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: domain.SummaryInstruction})

	summary, err := s.llm.Chat(ctx, toOllama(msgs))
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(metrics.StageSummary).Inc()
		slog.Warn("Summary generation failed, using fallback", "session_id", sessionID, "error", err)
		summary = domain.FallbackSummary
	}

	s.store.Remove(sessionID)
	s.metrics.SessionsEnded.Inc()
	s.metrics.ActiveSessions.Set(float64(s.store.Len()))

	slog.Info("Session ended", "session_id", sessionID)
	return summary, nil
}

// OnEvicted records a sweeper eviction. Wired as the sweeper callback.
func (s *Service) OnEvicted(sessionID string) {
	s.metrics.SessionsEvicted.Inc()
	s.metrics.ActiveSessions.Set(float64(s.store.Len()))
	slog.Info("Session evicted after idle TTL", "session_id", sessionID)
}

// synthesize renders the reply and returns its public URL, or "" when
// synthesis fails. Text always wins over audio.
func (s *Service) synthesize(ctx context.Context, sessionID, reply string) string {
	name := fmt.Sprintf("%s-%d.wav", sessionID, time.Now().Unix())
	out := filepath.Join(s.cfg.AudioDir, name)

	start := time.Now()
	err := s.tts.Synthesize(ctx, CleanForSpeech(reply), out, tts.Options{
		Speed:      s.cfg.Speed,
		GainDB:     s.cfg.GainDB,
		SampleRate: s.cfg.SampleRate,
	})
	s.metrics.StageDuration.WithLabelValues(metrics.StageSynthesize).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StageFailures.WithLabelValues(metrics.StageSynthesize).Inc()
		s.metrics.TurnsDegraded.Inc()
		slog.Warn("Speech synthesis failed, returning text-only turn",
			"session_id", sessionID, "error", err)
		return ""
	}
	return s.cfg.AudioURLPrefix + "/" + name
}

func (s *Service) timedTranscode(ctx context.Context, src string) (string, error) {
	start := time.Now()
	wav, err := s.transcoder.Transcode(ctx, src)
	s.metrics.StageDuration.WithLabelValues(metrics.StageTranscode).Observe(time.Since(start).Seconds())
	return wav, err
}

func (s *Service) timedTranscribe(ctx context.Context, wav string) (string, error) {
	start := time.Now()
	text, err := s.stt.Transcribe(ctx, wav)
	s.metrics.StageDuration.WithLabelValues(metrics.StageTranscribe).Observe(time.Since(start).Seconds())
	return text, err
}

func (s *Service) timedChat(ctx context.Context, msgs []domain.Message) (string, error) {
	start := time.Now()
	reply, err := s.llm.Chat(ctx, toOllama(msgs))
	s.metrics.StageDuration.WithLabelValues(metrics.StageReply).Observe(time.Since(start).Seconds())
	return reply, err
}

func toOllama(msgs []domain.Message) []ollama.Message {
	out := make([]ollama.Message, len(msgs))
	for i, m := range msgs {
		out[i] = ollama.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
