package models

import (
	"time"

	"github.com/google/uuid"
)

// Project generation lifecycle.
const (
	ProjectGenerating = "generating"
	ProjectComplete   = "complete"
	ProjectError      = "error"
)

type Project struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	ChatID       *uuid.UUID `json:"chat_id"`
	Title        string     `json:"title"`
	Topic        string     `json:"topic"`
	LifeSkill    string     `json:"life_skill"`
	GroupSize    int        `json:"group_size"`
	DurationMin  int        `json:"duration_min"`
	Status       string     `json:"status"` // "generating" | "complete" | "error"
	RunID        *uuid.UUID `json:"run_id"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Participant is a seat assignment within a project's group. The teacher
// row carries a nil seat; students are numbered 1..GroupSize.
type Participant struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"project_id"`
	Role       string    `json:"role"` // "teacher" | "student"
	SeatNumber *int      `json:"seat_number"`
	Name       *string   `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)
