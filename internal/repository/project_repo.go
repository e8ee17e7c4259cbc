package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"abundance-backend/internal/models"
)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) Create(ctx context.Context, p *models.Project) error {
	query := `INSERT INTO projects (owner_id, chat_id, title, topic, life_skill, group_size, duration_min, status, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		p.OwnerID, p.ChatID, p.Title, p.Topic, p.LifeSkill, p.GroupSize, p.DurationMin, p.Status, p.RunID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p := &models.Project{}
	query := `SELECT id, owner_id, chat_id, title, topic, life_skill, group_size, duration_min,
			status, run_id, error_message, created_at, updated_at
		FROM projects WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.ChatID, &p.Title, &p.Topic, &p.LifeSkill, &p.GroupSize,
		&p.DurationMin, &p.Status, &p.RunID, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	query := `SELECT id, owner_id, chat_id, title, topic, life_skill, group_size, duration_min,
			status, run_id, error_message, created_at, updated_at
		FROM projects WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.ChatID, &p.Title, &p.Topic, &p.LifeSkill, &p.GroupSize,
			&p.DurationMin, &p.Status, &p.RunID, &p.ErrorMessage, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE projects SET status = $1, error_message = NULL, updated_at = NOW() WHERE id = $2",
		status, id,
	)
	return err
}

// UpdateError records an upstream generation failure on the project row so
// the UI can display it instead of crashing the caller.
func (r *ProjectRepo) UpdateError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE projects SET status = 'error', error_message = $1, updated_at = NOW() WHERE id = $2",
		message, id,
	)
	return err
}

func (r *ProjectRepo) CreateParticipant(ctx context.Context, p *models.Participant) error {
	query := `INSERT INTO participants (project_id, role, seat_number, name)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query, p.ProjectID, p.Role, p.SeatNumber, p.Name).Scan(&p.ID, &p.CreatedAt)
}

func (r *ProjectRepo) ListParticipants(ctx context.Context, projectID uuid.UUID) ([]models.Participant, error) {
	query := `SELECT id, project_id, role, seat_number, name, created_at
		FROM participants WHERE project_id = $1 ORDER BY seat_number NULLS FIRST`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Role, &p.SeatNumber, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
