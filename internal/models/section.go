package models

import (
	"time"

	"github.com/google/uuid"
)

// Section types, in presentation order.
const (
	SectionObjective = "objective"
	SectionSteps     = "steps"
	SectionData      = "data"
)

func IsValidSectionType(t string) bool {
	return t == SectionObjective || t == SectionSteps || t == SectionData
}

// Section is a unit of generated content. SeatNumber scoping:
// 0 is teacher-only, nil is shared across the group, 1..N is a specific
// student seat.
type Section struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	SectionType string    `json:"section_type"`
	SeatNumber  *int      `json:"seat_number"`
	ContentText string    `json:"content_text"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateSectionRequest is the body of a section edit. The project and
// section type come from the URL; role and seat pick the record the edit
// resolves to.
type UpdateSectionRequest struct {
	Role        string `json:"role"` // "teacher" | "student"
	Seat        int    `json:"seat"` // required when role is "student"
	ContentText string `json:"content_text"`
}
