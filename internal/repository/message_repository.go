package repository

import (
	"context"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresMessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *entities.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, organization_id, text, sender_id, sender_name,
			direction, source, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ConversationID, m.OrganizationID, m.Text, m.SenderID, m.SenderName,
		string(m.Direction), string(m.Source), m.ExternalID, m.CreatedAt)
	return errx.WrapPostgres(err, ErrNotFound)
}

// ListRecent selects the newest rows descending, then flips them to oldest first.
func (r *PostgresMessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, organization_id, text, sender_id, sender_name,
			direction, source, external_id, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at DESC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	defer rows.Close()

	var result []entities.Message
	for rows.Next() {
		var (
			m                 entities.Message
			direction, source string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.OrganizationID, &m.Text, &m.SenderID, &m.SenderName,
			&direction, &source, &m.ExternalID, &m.CreatedAt); err != nil {
			return nil, errx.WrapPostgres(err, ErrNotFound)
		}
		m.Direction = entities.Direction(direction)
		m.Source = entities.Source(source)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}
