package models

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses. Completed and expired are terminal.
const (
	SessionActive    = "active"
	SessionPaused    = "paused"
	SessionCompleted = "completed"
	SessionExpired   = "expired"
)

// Session is one live run of a project by a group.
//
// Elapsed-time accounting: TotalElapsedSeconds accumulates the durations of
// finished phases. PhaseElapsedSeconds banks time spent in the current phase
// before a pause, so pausing never loses it and resuming never double-counts
// it; while the session is active the live elapsed for the current phase is
// PhaseElapsedSeconds + (now - PhaseStartTime).
type Session struct {
	ID                  uuid.UUID           `json:"id"`
	ProjectID           uuid.UUID           `json:"project_id"`
	SessionCode         string              `json:"session_code"`
	CurrentPhase        string              `json:"current_phase"`
	Status              string              `json:"status"`
	PhaseStartTime      time.Time           `json:"phase_start_time"`
	PhaseElapsedSeconds int                 `json:"phase_elapsed_seconds"`
	TotalElapsedSeconds int                 `json:"total_elapsed_seconds"`
	PhaseTimeLimits     map[string]int      `json:"phase_time_limits"`
	ConversationHistory []ConversationEntry `json:"conversation_history"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	LastAccessedAt      time.Time           `json:"last_accessed_at"`
	ExpiresAt           time.Time           `json:"expires_at"`
}

// ConversationEntry is one message in the session's shared log. RequestID is
// a client-generated token used to drop duplicate appends on retry.
type ConversationEntry struct {
	Role          string     `json:"role"`
	Content       string     `json:"content"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	RequestID     string     `json:"request_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// SessionPhaseHistory is the append-only audit log of phase transitions.
type SessionPhaseHistory struct {
	ID              uuid.UUID `json:"id"`
	SessionID       uuid.UUID `json:"session_id"`
	PhaseName       string    `json:"phase_name"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// SessionDetail is the full session view returned by lookups.
type SessionDetail struct {
	Session      *Session              `json:"session"`
	Project      *Project              `json:"project"`
	Participants []Participant         `json:"participants"`
	PhaseHistory []SessionPhaseHistory `json:"phase_history"`
}

type CreateSessionRequest struct {
	ProjectID      uuid.UUID   `json:"project_id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type ProgressPhaseRequest struct {
	NextPhase string `json:"next_phase,omitempty"`
}

type AddConversationRequest struct {
	Role          string     `json:"role"`
	Content       string     `json:"content"`
	ParticipantID *uuid.UUID `json:"participant_id"`
	RequestID     string     `json:"request_id"`
}
