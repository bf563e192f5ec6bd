// Package domain holds the core types for mock-interview sessions.
package domain

import (
	"errors"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Track selects the interview scenario.
type Track string

const (
	// TrackAcademic is a university/college admission interview.
	TrackAcademic Track = "academic-track"
	// TrackEmployment is a job interview.
	TrackEmployment Track = "employment-track"
)

// ErrInvalidTrack is returned when a track value is not one of the two
// recognized scenarios.
var ErrInvalidTrack = errors.New("track must be academic-track or employment-track")

// ParseTrack validates a raw form value.
func ParseTrack(s string) (Track, error) {
	switch Track(s) {
	case TrackAcademic, TrackEmployment:
		return Track(s), nil
	default:
		return "", ErrInvalidTrack
	}
}

// Message is a single entry in a session's conversation log.
// Messages are immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one candidate's interview conversation. The message log is
// append-only: Messages[0] is the system persona, Messages[1] the opening
// question, and every later pair is (user, assistant) unless a turn failed
// before the assistant reply was produced.
type Session struct {
	ID         string
	Track      Track
	Field      string
	Target     string
	CreatedAt  time.Time
	LastActive time.Time
	Messages   []Message
}

// TurnResult is returned once per completed turn. AudioURL is empty when
// synthesis failed or the synthesizer is not configured; the turn is still
// considered successful in that case.
type TurnResult struct {
	UserText      string `json:"user_text"`
	AssistantText string `json:"assistant_text"`
	AudioURL      string `json:"audio_url"`
}
