package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is one onboarding conversation between a teacher and the assistant.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the payload sent to the assistant endpoint.
type ChatRequest struct {
	ChatID  *uuid.UUID `json:"chat_id"`
	Message string     `json:"message"`
}

// AssistantReply is either a follow-up question or the signal that the
// assistant gathered enough to generate a project.
type AssistantReply struct {
	ChatID    uuid.UUID  `json:"chat_id"`
	Action    string     `json:"action"` // "continue" | "generate_project"
	Message   string     `json:"message,omitempty"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
}

// ProjectDraft is the terminal payload the assistant emits once it has
// extracted enough fields from the conversation.
type ProjectDraft struct {
	Title       string `json:"title"`
	Topic       string `json:"topic"`
	LifeSkill   string `json:"life_skill"`
	GroupSize   int    `json:"group_size"`
	DurationMin int    `json:"duration_min"`
}
