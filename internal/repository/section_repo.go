package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"abundance-backend/internal/models"
)

type SectionRepo struct {
	pool *pgxpool.Pool
}

func NewSectionRepo(pool *pgxpool.Pool) *SectionRepo {
	return &SectionRepo{pool: pool}
}

// ReplaceForProject swaps a project's section set atomically, so a
// regeneration never leaves a mix of old and new content behind.
func (r *SectionRepo) ReplaceForProject(ctx context.Context, projectID uuid.UUID, sections []models.Section) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM sections WHERE project_id = $1", projectID); err != nil {
		return err
	}

	query := `INSERT INTO sections (project_id, section_type, seat_number, content_text, order_index)
		VALUES ($1, $2, $3, $4, $5)`
	for _, s := range sections {
		if _, err := tx.Exec(ctx, query, projectID, s.SectionType, s.SeatNumber, s.ContentText, s.OrderIndex); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListByProject fetches every section row for a project, seats included.
func (r *SectionRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Section, error) {
	query := `SELECT id, project_id, section_type, seat_number, content_text, order_index, created_at, updated_at
		FROM sections WHERE project_id = $1 ORDER BY order_index`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []models.Section
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.SectionType, &s.SeatNumber, &s.ContentText,
			&s.OrderIndex, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// ListVisible fetches the section rows a viewer may see: seat 0 for the
// teacher view, shared rows plus the matching seat for a student view.
func (r *SectionRepo) ListVisible(ctx context.Context, projectID uuid.UUID, role string, seat int) ([]models.Section, error) {
	query := `SELECT id, project_id, section_type, seat_number, content_text, order_index, created_at, updated_at
		FROM sections WHERE project_id = $1 AND seat_number = 0 ORDER BY order_index`
	args := []interface{}{projectID}

	if role == models.RoleStudent {
		query = `SELECT id, project_id, section_type, seat_number, content_text, order_index, created_at, updated_at
			FROM sections WHERE project_id = $1 AND (seat_number IS NULL OR seat_number = $2) ORDER BY order_index`
		args = append(args, seat)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []models.Section
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.SectionType, &s.SeatNumber, &s.ContentText,
			&s.OrderIndex, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *SectionRepo) UpdateContent(ctx context.Context, id uuid.UUID, contentText string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE sections SET content_text = $1, updated_at = NOW() WHERE id = $2",
		contentText, id,
	)
	return err
}
