package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"abundance-backend/internal/models"
	"abundance-backend/internal/repository"
)

const sectionCacheTTL = 10 * time.Minute

// Viewer identifies who is looking at a project's content. Seat is only
// meaningful for students; the teacher reads seat 0.
type Viewer struct {
	Role string
	Seat int
}

// resolutionSeats returns the seat numbers a viewer's content resolves
// through, most specific first. Seat 0 holds teacher content, nil (encoded
// here as -1) holds shared content, 1..N hold per-student content.
// Seat-specific matching requires a real seat; a student without one reads
// shared content, never the teacher's seat 0 copy at top priority.
func resolutionSeats(v Viewer) []int {
	if v.Role == models.RoleTeacher {
		return []int{0, -1}
	}
	if v.Seat < 1 {
		return []int{-1, 0}
	}
	return []int{v.Seat, -1, 0}
}

func seatOf(s models.Section) int {
	if s.SeatNumber == nil {
		return -1
	}
	return *s.SeatNumber
}

// ResolveContent picks the single section body a viewer should see for a
// section type: their own seat first, then shared, then the teacher copy.
// Returns "" when nothing matches.
func ResolveContent(sections []models.Section, v Viewer, sectionType string) string {
	if s := resolveSection(sections, v, sectionType); s != nil {
		return s.ContentText
	}
	return ""
}

// ResolveSectionID is ResolveContent for the row identity, used by edits.
func ResolveSectionID(sections []models.Section, v Viewer, sectionType string) *uuid.UUID {
	if s := resolveSection(sections, v, sectionType); s != nil {
		id := s.ID
		return &id
	}
	return nil
}

func resolveSection(sections []models.Section, v Viewer, sectionType string) *models.Section {
	for _, seat := range resolutionSeats(v) {
		for i := range sections {
			if sections[i].SectionType == sectionType && seatOf(sections[i]) == seat {
				return &sections[i]
			}
		}
	}
	return nil
}

type SectionService struct {
	sectionRepo *repository.SectionRepo
	projectRepo *repository.ProjectRepo
	redis       *redis.Client
}

func NewSectionService(sectionRepo *repository.SectionRepo, projectRepo *repository.ProjectRepo, redisClient *redis.Client) *SectionService {
	return &SectionService{
		sectionRepo: sectionRepo,
		projectRepo: projectRepo,
		redis:       redisClient,
	}
}

func sectionCacheKey(projectID uuid.UUID) string {
	return "sections:" + projectID.String()
}

// cachedSections returns the full cached section set for a project, if warm.
func (s *SectionService) cachedSections(ctx context.Context, projectID uuid.UUID) ([]models.Section, bool) {
	key := sectionCacheKey(projectID)
	cached, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var sections []models.Section
	if err := json.Unmarshal(cached, &sections); err != nil {
		// Corrupt cache entry, drop it.
		s.redis.Del(ctx, key)
		return nil, false
	}
	return sections, true
}

// loadSections returns every section for a project, from cache when warm.
func (s *SectionService) loadSections(ctx context.Context, projectID uuid.UUID) ([]models.Section, error) {
	if sections, ok := s.cachedSections(ctx, projectID); ok {
		return sections, nil
	}

	sections, err := s.sectionRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sections); err == nil {
		s.redis.Set(ctx, sectionCacheKey(projectID), data, sectionCacheTTL)
	}
	return sections, nil
}

func (s *SectionService) InvalidateCache(ctx context.Context, projectID uuid.UUID) {
	s.redis.Del(ctx, sectionCacheKey(projectID))
}

// filterVisible applies the visibility rule to a full section set: the
// teacher sees seat 0, a student sees shared rows plus their own seat.
func filterVisible(sections []models.Section, v Viewer) []models.Section {
	visible := make([]models.Section, 0, len(sections))
	for _, sec := range sections {
		seat := seatOf(sec)
		if v.Role == models.RoleTeacher {
			if seat == 0 {
				visible = append(visible, sec)
			}
			continue
		}
		if seat == -1 || seat == v.Seat {
			visible = append(visible, sec)
		}
	}
	return visible
}

// GetVisible returns the sections a viewer may see, in display order. A warm
// cache holds the full set and is filtered in memory; a cold cache fetches
// only the viewer's rows straight from Postgres.
func (s *SectionService) GetVisible(ctx context.Context, projectID uuid.UUID, v Viewer) ([]models.Section, error) {
	if v.Role == models.RoleStudent && v.Seat < 1 {
		return nil, &ValidationError{Fields: map[string]string{"seat": "Seat number is required for students"}}
	}

	if sections, ok := s.cachedSections(ctx, projectID); ok {
		return filterVisible(sections, v), nil
	}
	return s.sectionRepo.ListVisible(ctx, projectID, v.Role, v.Seat)
}

// Resolve returns the one body a viewer should see for a section type.
func (s *SectionService) Resolve(ctx context.Context, projectID uuid.UUID, v Viewer, sectionType string) (string, error) {
	if !models.IsValidSectionType(sectionType) {
		return "", &ValidationError{Fields: map[string]string{"section_type": "Unknown section type"}}
	}

	sections, err := s.loadSections(ctx, projectID)
	if err != nil {
		return "", err
	}
	return ResolveContent(sections, v, sectionType), nil
}

// UpdateContent rewrites the section a viewer's edit resolves to. An edit
// that resolves to nothing is silently dropped rather than erroring, so a
// stale client editing a regenerated project does not crash.
func (s *SectionService) UpdateContent(ctx context.Context, projectID uuid.UUID, v Viewer, sectionType, contentText string) error {
	if !models.IsValidSectionType(sectionType) {
		return &ValidationError{Fields: map[string]string{"section_type": "Unknown section type"}}
	}

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &NotFoundError{Message: "Project not found"}
		}
		return err
	}

	sections, err := s.sectionRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}

	id := ResolveSectionID(sections, v, sectionType)
	if id == nil {
		return nil
	}

	if err := s.sectionRepo.UpdateContent(ctx, *id, contentText); err != nil {
		return fmt.Errorf("failed to update section: %w", err)
	}

	s.InvalidateCache(ctx, projectID)
	return nil
}
