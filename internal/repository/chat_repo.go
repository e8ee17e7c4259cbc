package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"abundance-backend/internal/models"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, ownerID uuid.UUID) (*models.Chat, error) {
	c := &models.Chat{OwnerID: ownerID}
	query := `INSERT INTO chats (owner_id) VALUES ($1) RETURNING id, created_at`

	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&c.ID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	c := &models.Chat{}
	query := `SELECT id, owner_id, created_at FROM chats WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.OwnerID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChatRepo) AddMessage(ctx context.Context, chatID uuid.UUID, role, content string) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO chat_messages (chat_id, role, content) VALUES ($1, $2, $3)",
		chatID, role, content,
	)
	return err
}

func (r *ChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID) ([]models.ChatMessage, error) {
	query := `SELECT id, chat_id, role, content, created_at
		FROM chat_messages WHERE chat_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
