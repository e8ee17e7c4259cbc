package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"abundance-backend/internal/models"
)

const validGeneration = `{
	"teacher": {"objective": "Guide the class", "steps": "Set up stations", "data": "Answer key"},
	"shared": {"objective": "Build a market stall", "steps": "Work together", "data": "Price list"},
	"seats": [
		{"seat": 1, "objective": "Track the budget", "steps": "Record purchases", "data": "Ledger template"},
		{"seat": 2, "objective": "Run the stall", "steps": "Serve customers", "data": ""}
	]
}`

func TestParseGeneratedSections(t *testing.T) {
	projectID := uuid.New()

	sections, err := parseGeneratedSections(validGeneration, projectID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 teacher + 3 shared + 3 seat1 + 2 seat2 (empty data dropped)
	if len(sections) != 11 {
		t.Fatalf("got %d sections, want 11", len(sections))
	}

	if sections[0].SeatNumber == nil || *sections[0].SeatNumber != 0 {
		t.Error("first section should be the teacher's (seat 0)")
	}
	if sections[0].SectionType != models.SectionObjective || sections[0].ContentText != "Guide the class" {
		t.Errorf("unexpected first section: %+v", sections[0])
	}

	if sections[3].SeatNumber != nil {
		t.Error("fourth section should be shared (nil seat)")
	}

	for i, s := range sections {
		if s.OrderIndex != i {
			t.Errorf("section %d has order index %d", i, s.OrderIndex)
		}
		if s.ProjectID != projectID {
			t.Errorf("section %d has wrong project id", i)
		}
	}
}

func TestParseGeneratedSections_FencedOutput(t *testing.T) {
	raw := "```json\n" + validGeneration + "\n```"

	if _, err := parseGeneratedSections(raw, uuid.New(), 2); err != nil {
		t.Fatalf("fenced output should parse: %v", err)
	}
}

func TestParseGeneratedSections_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		groupSize int
		wantErr   string
	}{
		{"not json", "sorry, I cannot do that", 2, "not JSON"},
		{"seat count mismatch", validGeneration, 3, "2 seats, want 3"},
		{
			"missing teacher content",
			`{"teacher": {"objective": "", "steps": ""}, "shared": {"objective": "x", "steps": "y"}, "seats": []}`,
			0,
			"missing teacher content",
		},
		{
			"duplicate seat",
			`{"teacher": {"objective": "a", "steps": "b"}, "shared": {"objective": "c", "steps": "d"},
			  "seats": [{"seat": 1, "objective": "e", "steps": "f"}, {"seat": 1, "objective": "g", "steps": "h"}]}`,
			2,
			"invalid seat number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseGeneratedSections(tt.raw, uuid.New(), tt.groupSize)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
