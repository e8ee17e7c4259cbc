package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"abundance-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, project_id, session_code, current_phase, status, phase_start_time,
	phase_elapsed_seconds, total_elapsed_seconds, phase_time_limits, conversation_history,
	created_at, updated_at, last_accessed_at, expires_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	s := &models.Session{}
	var limits, history []byte

	err := row.Scan(
		&s.ID, &s.ProjectID, &s.SessionCode, &s.CurrentPhase, &s.Status, &s.PhaseStartTime,
		&s.PhaseElapsedSeconds, &s.TotalElapsedSeconds, &limits, &history,
		&s.CreatedAt, &s.UpdatedAt, &s.LastAccessedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(limits, &s.PhaseTimeLimits); err != nil {
		return nil, fmt.Errorf("failed to decode phase_time_limits: %w", err)
	}
	if err := json.Unmarshal(history, &s.ConversationHistory); err != nil {
		return nil, fmt.Errorf("failed to decode conversation_history: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) Create(ctx context.Context, s *models.Session, participantIDs []uuid.UUID) error {
	limits, err := json.Marshal(s.PhaseTimeLimits)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO sessions (project_id, session_code, current_phase, status, phase_start_time, phase_time_limits, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, phase_elapsed_seconds, total_elapsed_seconds, created_at, updated_at, last_accessed_at`

	err = tx.QueryRow(ctx, query,
		s.ProjectID, s.SessionCode, s.CurrentPhase, s.Status, s.PhaseStartTime, limits, s.ExpiresAt,
	).Scan(&s.ID, &s.PhaseElapsedSeconds, &s.TotalElapsedSeconds, &s.CreatedAt, &s.UpdatedAt, &s.LastAccessedAt)
	if err != nil {
		return err
	}

	for _, pid := range participantIDs {
		if _, err := tx.Exec(ctx,
			"INSERT INTO session_participants (session_id, participant_id) VALUES ($1, $2)",
			s.ID, pid,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *SessionRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM sessions WHERE session_code = $1)", code).Scan(&exists)
	return exists, err
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *SessionRepo) GetByCode(ctx context.Context, code string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE session_code = $1", sessionColumns)
	return scanSession(r.pool.QueryRow(ctx, query, code))
}

func (r *SessionRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE project_id = $1 ORDER BY created_at DESC", sessionColumns)

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) TouchAccess(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE sessions SET last_accessed_at = NOW() WHERE id = $1", id)
	return err
}

func (r *SessionRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE sessions SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

func (r *SessionRepo) ListPhaseHistory(ctx context.Context, sessionID uuid.UUID) ([]models.SessionPhaseHistory, error) {
	query := `SELECT id, session_id, phase_name, duration_seconds, created_at
		FROM session_phase_history WHERE session_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.SessionPhaseHistory
	for rows.Next() {
		var h models.SessionPhaseHistory
		if err := rows.Scan(&h.ID, &h.SessionID, &h.PhaseName, &h.DurationSeconds, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// lockSession loads a session row FOR UPDATE inside tx. All state
// transitions go through this so concurrent requests for the same session
// serialize at the store instead of racing.
func lockSession(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1 FOR UPDATE", sessionColumns)
	return scanSession(tx.QueryRow(ctx, query, id))
}

// ProgressPhase applies a phase transition and its history row as one
// transaction; a failure leaves the session untouched.
func (r *SessionRepo) ProgressPhase(ctx context.Context, id uuid.UUID, explicitNext string) (*models.Session, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	s, err := lockSession(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	if s.Expire(now) {
		if _, err := tx.Exec(ctx, "UPDATE sessions SET status = $1, updated_at = NOW() WHERE id = $2", s.Status, id); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return s, false, models.ErrSessionTerminal
	}

	entry, completed, err := s.Progress(explicitNext, now)
	if err != nil {
		return s, false, err
	}

	_, err = tx.Exec(ctx, `UPDATE sessions
		SET current_phase = $1, status = $2, phase_start_time = $3,
			phase_elapsed_seconds = $4, total_elapsed_seconds = $5, updated_at = NOW()
		WHERE id = $6`,
		s.CurrentPhase, s.Status, s.PhaseStartTime, s.PhaseElapsedSeconds, s.TotalElapsedSeconds, id,
	)
	if err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO session_phase_history (session_id, phase_name, duration_seconds) VALUES ($1, $2, $3)",
		id, entry.PhaseName, entry.DurationSeconds,
	)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return s, completed, nil
}

func (r *SessionRepo) Pause(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.transition(ctx, id, func(s *models.Session, now time.Time) error {
		return s.Pause(now)
	})
}

func (r *SessionRepo) Resume(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return r.transition(ctx, id, func(s *models.Session, now time.Time) error {
		return s.Resume(now)
	})
}

func (r *SessionRepo) transition(ctx context.Context, id uuid.UUID, apply func(*models.Session, time.Time) error) (*models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	s, err := lockSession(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if s.Expire(now) {
		if _, err := tx.Exec(ctx, "UPDATE sessions SET status = $1, updated_at = NOW() WHERE id = $2", s.Status, id); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return s, models.ErrSessionTerminal
	}

	if err := apply(s, now); err != nil {
		return s, err
	}

	_, err = tx.Exec(ctx, `UPDATE sessions
		SET status = $1, phase_start_time = $2, phase_elapsed_seconds = $3, updated_at = NOW()
		WHERE id = $4`,
		s.Status, s.PhaseStartTime, s.PhaseElapsedSeconds, id,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// AppendConversation does a row-locked read-modify-write of the history so
// near-simultaneous appends serialize in store acceptance order and none
// are lost. The added return is false when the entry's request_id was
// already present (a retried delivery).
func (r *SessionRepo) AppendConversation(ctx context.Context, id uuid.UUID, entry models.ConversationEntry) (*models.Session, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	s, err := lockSession(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	if s.Expire(now) {
		if _, err := tx.Exec(ctx, "UPDATE sessions SET status = $1, updated_at = NOW() WHERE id = $2", s.Status, id); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return s, false, models.ErrSessionTerminal
	}

	added, err := s.AppendConversation(entry, now)
	if err != nil {
		return s, false, err
	}
	if !added {
		return s, false, tx.Commit(ctx)
	}

	history, err := json.Marshal(s.ConversationHistory)
	if err != nil {
		return nil, false, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE sessions SET conversation_history = $1, updated_at = NOW() WHERE id = $2",
		history, id,
	)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// SweepExpired hard-deletes sessions past their deadline; participants and
// phase history go with them via ON DELETE CASCADE.
func (r *SessionRepo) SweepExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at < NOW()")
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
