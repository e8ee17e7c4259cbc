package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"

	"abundance-backend/internal/models"
	"abundance-backend/internal/repository"
)

// GeneratorService turns a project draft into role-scoped content sections.
// It is driven by the worker pool, never directly by a request handler.
type GeneratorService struct {
	model       *genai.GenerativeModel
	projectRepo *repository.ProjectRepo
	sectionRepo *repository.SectionRepo
	sections    *SectionService
	rateChan    chan struct{}
}

func NewGeneratorService(
	client *genai.Client,
	concurrentReqs int,
	projectRepo *repository.ProjectRepo,
	sectionRepo *repository.SectionRepo,
	sections *SectionService,
) *GeneratorService {
	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeneratorService{
		model:       model,
		projectRepo: projectRepo,
		sectionRepo: sectionRepo,
		sections:    sections,
		rateChan:    rateChan,
	}
}

func (s *GeneratorService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeneratorService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateProject produces and stores the full section set for a project.
// On success the project flips to "complete"; the caller records failures.
func (s *GeneratorService) GenerateProject(ctx context.Context, job *models.Job) error {
	if err := s.acquireRate(ctx); err != nil {
		return err
	}
	defer s.releaseRate()

	project, err := s.projectRepo.GetByID(ctx, job.ReferenceID)
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	prompt := buildGenerationPrompt(project)
	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return fmt.Errorf("Gemini API error: %w", err)
	}

	sections, err := parseGeneratedSections(extractText(resp), project.ID, project.GroupSize)
	if err != nil {
		return err
	}

	if err := s.sectionRepo.ReplaceForProject(ctx, project.ID, sections); err != nil {
		return fmt.Errorf("failed to store sections: %w", err)
	}

	if err := s.projectRepo.UpdateStatus(ctx, project.ID, models.ProjectComplete); err != nil {
		return err
	}

	s.sections.InvalidateCache(ctx, project.ID)
	return nil
}

func buildGenerationPrompt(p *models.Project) string {
	var b strings.Builder

	b.WriteString("You are an expert lesson designer creating a hands-on group classroom project.\n\n")
	fmt.Fprintf(&b, "Project: %s\nTopic: %s\nLife skill practiced: %s\nGroup size: %d students\nSession length: %d minutes\n\n",
		p.Title, p.Topic, p.LifeSkill, p.GroupSize, p.DurationMin)

	b.WriteString(`Produce content for three audiences:
- "teacher": facilitation notes. The objective describes what the class should achieve, the steps tell the teacher how to run each part, and data lists materials and answer keys.
- "shared": what the whole group sees together. Objective, steps and data written for students.
- "seats": one entry per student seat (1 through `)
	fmt.Fprintf(&b, "%d", p.GroupSize)
	b.WriteString(`). Each seat gets a distinct role in the group with its own objective, steps and data, so every student has something different to do that combines into the shared goal.

Reply with ONLY a JSON object in exactly this shape, no markdown fences and no commentary:
{
  "teacher": {"objective": "...", "steps": "...", "data": "..."},
  "shared": {"objective": "...", "steps": "...", "data": "..."},
  "seats": [
    {"seat": 1, "objective": "...", "steps": "...", "data": "..."}
  ]
}
Every objective and steps field must be non-empty. Keep each field under 200 words.`)

	return b.String()
}

type generatedBundle struct {
	Objective string `json:"objective"`
	Steps     string `json:"steps"`
	Data      string `json:"data"`
}

type generatedSeat struct {
	Seat int `json:"seat"`
	generatedBundle
}

// parseGeneratedSections validates the model output and flattens it into
// section rows: seat 0 for the teacher bundle, nil seat for shared, and one
// numbered row set per student.
func parseGeneratedSections(raw string, projectID uuid.UUID, groupSize int) ([]models.Section, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed struct {
		Teacher generatedBundle `json:"teacher"`
		Shared  generatedBundle `json:"shared"`
		Seats   []generatedSeat `json:"seats"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("generation output is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
			return nil, fmt.Errorf("generation output is not JSON: %w", err)
		}
	}

	if parsed.Teacher.Objective == "" || parsed.Teacher.Steps == "" {
		return nil, fmt.Errorf("generation output missing teacher content")
	}
	if parsed.Shared.Objective == "" || parsed.Shared.Steps == "" {
		return nil, fmt.Errorf("generation output missing shared content")
	}
	if len(parsed.Seats) != groupSize {
		return nil, fmt.Errorf("generation output has %d seats, want %d", len(parsed.Seats), groupSize)
	}

	seen := make(map[int]bool, groupSize)
	for _, seat := range parsed.Seats {
		if seat.Seat < 1 || seat.Seat > groupSize || seen[seat.Seat] {
			return nil, fmt.Errorf("generation output has invalid seat number %d", seat.Seat)
		}
		if seat.Objective == "" || seat.Steps == "" {
			return nil, fmt.Errorf("generation output missing content for seat %d", seat.Seat)
		}
		seen[seat.Seat] = true
	}

	order := 0
	var sections []models.Section
	add := func(seat *int, bundle generatedBundle) {
		for _, pair := range []struct {
			sectionType string
			text        string
		}{
			{models.SectionObjective, bundle.Objective},
			{models.SectionSteps, bundle.Steps},
			{models.SectionData, bundle.Data},
		} {
			if pair.text == "" {
				continue
			}
			sections = append(sections, models.Section{
				ProjectID:   projectID,
				SectionType: pair.sectionType,
				SeatNumber:  seat,
				ContentText: pair.text,
				OrderIndex:  order,
			})
			order++
		}
	}

	zero := 0
	add(&zero, parsed.Teacher)
	add(nil, parsed.Shared)
	for _, seat := range parsed.Seats {
		n := seat.Seat
		add(&n, seat.generatedBundle)
	}

	return sections, nil
}
