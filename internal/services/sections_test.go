package services

import (
	"testing"

	"github.com/google/uuid"

	"abundance-backend/internal/models"
)

func seatPtr(n int) *int { return &n }

func testSections() []models.Section {
	mk := func(sectionType string, seat *int, text string) models.Section {
		return models.Section{
			ID:          uuid.New(),
			SectionType: sectionType,
			SeatNumber:  seat,
			ContentText: text,
		}
	}
	return []models.Section{
		mk(models.SectionObjective, seatPtr(0), "teacher objective"),
		mk(models.SectionObjective, nil, "shared objective"),
		mk(models.SectionObjective, seatPtr(1), "seat 1 objective"),
		mk(models.SectionObjective, seatPtr(2), "seat 2 objective"),
		mk(models.SectionSteps, nil, "shared steps"),
		mk(models.SectionData, seatPtr(0), "teacher data"),
	}
}

func TestResolveContent(t *testing.T) {
	sections := testSections()

	tests := []struct {
		name        string
		viewer      Viewer
		sectionType string
		want        string
	}{
		{"teacher gets own copy over shared", Viewer{Role: models.RoleTeacher}, models.SectionObjective, "teacher objective"},
		{"teacher falls back to shared", Viewer{Role: models.RoleTeacher}, models.SectionSteps, "shared steps"},
		{"student gets own seat", Viewer{Role: models.RoleStudent, Seat: 1}, models.SectionObjective, "seat 1 objective"},
		{"other student gets own seat", Viewer{Role: models.RoleStudent, Seat: 2}, models.SectionObjective, "seat 2 objective"},
		{"student without seat copy gets shared", Viewer{Role: models.RoleStudent, Seat: 3}, models.SectionObjective, "shared objective"},
		{"seatless student gets shared, not teacher copy", Viewer{Role: models.RoleStudent}, models.SectionObjective, "shared objective"},
		{"seatless student falls back to teacher copy", Viewer{Role: models.RoleStudent}, models.SectionData, "teacher data"},
		{"student falls back to shared", Viewer{Role: models.RoleStudent, Seat: 1}, models.SectionSteps, "shared steps"},
		{"student falls back to teacher copy last", Viewer{Role: models.RoleStudent, Seat: 1}, models.SectionData, "teacher data"},
		{"nothing matches", Viewer{Role: models.RoleTeacher}, "unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveContent(sections, tt.viewer, tt.sectionType)
			if got != tt.want {
				t.Errorf("ResolveContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveContent_EmptySet(t *testing.T) {
	if got := ResolveContent(nil, Viewer{Role: models.RoleTeacher}, models.SectionObjective); got != "" {
		t.Errorf("expected empty string on empty section set, got %q", got)
	}
}

// A student request that never supplied a seat parses as seat 0, which is
// the teacher's seat. Resolution must treat that as "no seat" and serve the
// shared copy, and edits must never land on the teacher's record.
func TestResolve_SeatlessStudent(t *testing.T) {
	teacherRow := models.Section{
		ID:          uuid.New(),
		SectionType: models.SectionObjective,
		SeatNumber:  seatPtr(0),
		ContentText: "teacher objective",
	}
	sharedRow := models.Section{
		ID:          uuid.New(),
		SectionType: models.SectionObjective,
		ContentText: "shared objective",
	}
	sections := []models.Section{teacherRow, sharedRow}

	for _, seat := range []int{0, -1} {
		v := Viewer{Role: models.RoleStudent, Seat: seat}

		if got := ResolveContent(sections, v, models.SectionObjective); got != "shared objective" {
			t.Errorf("seat %d: ResolveContent() = %q, want %q", seat, got, "shared objective")
		}

		id := ResolveSectionID(sections, v, models.SectionObjective)
		if id == nil {
			t.Fatalf("seat %d: expected a section id", seat)
		}
		if *id == teacherRow.ID {
			t.Errorf("seat %d: resolved to the teacher's record", seat)
		}
		if *id != sharedRow.ID {
			t.Errorf("seat %d: resolved to %s, want shared row %s", seat, *id, sharedRow.ID)
		}
	}
}

func TestFilterVisible(t *testing.T) {
	sections := testSections()

	tests := []struct {
		name   string
		viewer Viewer
		want   []string
	}{
		{"teacher sees only seat 0", Viewer{Role: models.RoleTeacher}, []string{"teacher objective", "teacher data"}},
		{"student sees shared plus own seat", Viewer{Role: models.RoleStudent, Seat: 1}, []string{"shared objective", "seat 1 objective", "shared steps"}},
		{"student never sees other seats", Viewer{Role: models.RoleStudent, Seat: 2}, []string{"shared objective", "seat 2 objective", "shared steps"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterVisible(sections, tt.viewer)
			if len(got) != len(tt.want) {
				t.Fatalf("filterVisible() returned %d sections, want %d", len(got), len(tt.want))
			}
			for i, sec := range got {
				if sec.ContentText != tt.want[i] {
					t.Errorf("section %d = %q, want %q", i, sec.ContentText, tt.want[i])
				}
			}
		})
	}
}

func TestResolveSectionID(t *testing.T) {
	sections := testSections()

	id := ResolveSectionID(sections, Viewer{Role: models.RoleStudent, Seat: 1}, models.SectionObjective)
	if id == nil {
		t.Fatal("expected a section id")
	}
	if *id != sections[2].ID {
		t.Errorf("resolved to the wrong section: got %s, want %s", *id, sections[2].ID)
	}

	if id := ResolveSectionID(sections, Viewer{Role: models.RoleStudent, Seat: 1}, "unknown"); id != nil {
		t.Error("expected nil id when nothing resolves")
	}
}
