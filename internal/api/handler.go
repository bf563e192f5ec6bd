// Package api provides the HTTP handlers for the coach backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/skamata/mensetsu-coach/internal/audio"
	"github.com/skamata/mensetsu-coach/internal/domain"
	"github.com/skamata/mensetsu-coach/internal/interview"
	"github.com/skamata/mensetsu-coach/internal/ollama"
	"github.com/skamata/mensetsu-coach/internal/session"
	"github.com/skamata/mensetsu-coach/internal/transcribe"
)

// maxUploadBytes caps one recorded answer. Browser recordings of a spoken
// answer stay well below this.
const maxUploadBytes = 32 << 20

// InterviewService is the slice of the interview service the handlers use.
type InterviewService interface {
	StartSession(track domain.Track, field, target string) (*domain.Session, error)
	Turn(ctx context.Context, sessionID string, upload io.Reader) (*domain.TurnResult, error)
	EndSession(ctx context.Context, sessionID string) (string, error)
}

// Prober reports whether the transcoder tool is runnable.
type Prober interface {
	Probe(ctx context.Context) error
}

// ReadyChecker reports whether the synthesis engine is fully configured.
type ReadyChecker interface {
	CheckReady() error
}

// Handler exposes the session and turn endpoints.
type Handler struct {
	svc         InterviewService
	transcoder  Prober
	synth       ReadyChecker
	ollamaURL   string
	ollamaModel string
	audioDir    string
}

// NewHandler creates a new Handler.
func NewHandler(svc InterviewService, transcoder Prober, synth ReadyChecker, ollamaURL, ollamaModel, audioDir string) *Handler {
	return &Handler{
		svc:         svc,
		transcoder:  transcoder,
		synth:       synth,
		ollamaURL:   ollamaURL,
		ollamaModel: ollamaModel,
		audioDir:    audioDir,
	}
}

// RegisterRoutes registers all coach endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session/start", h.SessionStart)
	r.Post("/turn", h.Turn)
	r.Post("/session/end", h.SessionEnd)
	r.Get("/health", h.Health)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// SessionStart creates a new interview session.
func (h *Handler) SessionStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		Error(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	track, err := domain.ParseTrack(r.FormValue("track"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.svc.StartSession(track, r.FormValue("field"), r.FormValue("target"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTrack) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"session_id":    sess.ID,
		"first_message": sess.Messages[1].Content,
	})
}

// Turn accepts one recorded answer and runs it through the pipeline.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		Error(w, http.StatusBadRequest, "upload_error: "+err.Error())
		return
	}

	sessionID := r.FormValue("session_id")

	file, _, err := r.FormFile("audio")
	if err != nil {
		Error(w, http.StatusBadRequest, "upload_error: "+err.Error())
		return
	}
	defer file.Close()

	// The pipeline is detached from the request lifetime: a client that
	// disconnects mid-turn must not kill the external processes or the model
	// call, and the session log is updated regardless. The model call carries
	// its own 120s budget.
	result, err := h.svc.Turn(context.WithoutCancel(r.Context()), sessionID, file)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

func (h *Handler) writeTurnError(w http.ResponseWriter, err error) {
	var (
		transcodeErr  *audio.TranscodeError
		transcribeErr *transcribe.Error
		gatewayErr    *ollama.HTTPError
	)

	switch {
	case errors.Is(err, session.ErrNotFound):
		Error(w, http.StatusNotFound, "invalid session")
	case errors.Is(err, interview.ErrUpload):
		Error(w, http.StatusBadRequest, "upload_error: "+err.Error())
	case errors.Is(err, audio.ErrFFmpegNotFound):
		Error(w, http.StatusInternalServerError, "ffmpeg_not_found: "+err.Error())
	case errors.As(err, &transcodeErr):
		Error(w, http.StatusInternalServerError, "ffmpeg_error: "+err.Error())
	case errors.As(err, &transcribeErr):
		Error(w, http.StatusInternalServerError, "whisper_error: "+err.Error())
	case errors.As(err, &gatewayErr):
		Error(w, http.StatusBadGateway, "ollama_http_error: "+err.Error())
	case errors.Is(err, ollama.ErrUnreachable):
		Error(w, http.StatusBadGateway, "ollama_request_error: "+err.Error())
	case errors.Is(err, ollama.ErrBadResponse):
		Error(w, http.StatusBadGateway, "ollama_response_error: "+err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

// SessionEnd finishes a session and returns the debrief summary.
func (h *Handler) SessionEnd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		Error(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	// Detached from the request lifetime like Turn: the summary runs to
	// completion and the session is removed even if the client gave up.
	summary, err := h.svc.EndSession(context.WithoutCancel(r.Context()), r.FormValue("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			Error(w, http.StatusNotFound, "invalid session")
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	JSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// Health reports backend configuration and the status of the external
// tools. It always answers 200; degraded dependencies show up as error
// strings in the body.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"ollama_url":   h.ollamaURL,
		"ollama_model": h.ollamaModel,
	}

	_, err := os.Stat(h.audioDir)
	info["audio_dir_exists"] = err == nil

	if err := h.transcoder.Probe(r.Context()); err != nil {
		info["ffmpeg"] = "error: " + err.Error()
	} else {
		info["ffmpeg"] = "ok"
	}

	if err := h.synth.CheckReady(); err != nil {
		info["open_jtalk"] = "error: " + err.Error()
	} else {
		info["open_jtalk"] = "ok"
	}

	JSON(w, http.StatusOK, info)
}
