// Package ollama is a client for a local Ollama server.
//
// Newer servers implement /api/chat; older ones only /api/generate. The
// client speaks the chat endpoint first and falls back to the legacy
// endpoint only when the chat endpoint answers 404.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds one reply generation across both attempts. Local
// models on CPU can legitimately take a while.
const requestTimeout = 120 * time.Second

const maxErrorBody = 300

// ErrUnreachable indicates a network-level failure (unreachable host,
// timeout) rather than an HTTP error response.
var ErrUnreachable = errors.New("ollama backend unreachable")

// ErrBadResponse indicates the backend answered with a success status but a
// body the client could not decode. Like ErrUnreachable this is a backend
// fault, not a local one.
var ErrBadResponse = errors.New("ollama response malformed")

// HTTPError is a non-success, non-fallback response from the backend.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ollama http error: %d %s", e.Status, e.Body)
}

// Message is one role/content pair in the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to one Ollama server with one configured model.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// New creates a client for the given base URL (no trailing slash) and model.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type reply struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
}

// Chat sends the full ordered message log and returns the generated reply,
// trimmed. A backend that answers with neither reply field yields "".
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	status, body, err := c.post(ctx, "/api/chat", chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	if status == http.StatusNotFound {
		// Legacy server without /api/chat: re-send the log as a single
		// newline-joined prompt. Only 404 triggers this path.
		status, body, err = c.post(ctx, "/api/generate", generateRequest{
			Model:  c.model,
			Prompt: LegacyPrompt(messages),
			Stream: false,
		})
		if err != nil {
			return "", err
		}
	}

	if status < 200 || status >= 300 {
		return "", &HTTPError{Status: status, Body: truncate(body, maxErrorBody)}
	}

	var r reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if r.Message.Content != "" {
		return strings.TrimSpace(r.Message.Content), nil
	}
	return strings.TrimSpace(r.Response), nil
}

// LegacyPrompt renders a message log in the "role: content" form the
// /api/generate endpoint expects.
func LegacyPrompt(messages []Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}
	return resp.StatusCode, string(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
