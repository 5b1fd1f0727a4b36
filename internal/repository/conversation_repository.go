package repository

import (
	"context"
	"fmt"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

const conversationColumns = `id, organization_id, platform, contact_id, contact_phone, contact_name,
	status, ai_enabled, funnel_stage, last_message, last_message_at, unread_count, created_at`

func scanConversation(row pgx.Row) (*entities.Conversation, error) {
	var (
		c             entities.Conversation
		platform      string
		lastMessageAt *time.Time
	)
	err := row.Scan(&c.ID, &c.OrganizationID, &platform, &c.ContactID, &c.ContactPhone, &c.ContactName,
		&c.Status, &c.AIEnabled, &c.FunnelStage, &c.LastMessage, &lastMessageAt, &c.UnreadCount, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Platform = entities.Platform(platform)
	if lastMessageAt != nil {
		c.LastMessageAt = *lastMessageAt
	}
	return &c, nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, orgID, id string) (*entities.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE organization_id = $1 AND id = $2", orgID, id))
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	return c, nil
}

// FindBy filters on a single equality column; platform and status are left to the caller.
func (r *PostgresConversationRepository) FindBy(ctx context.Context, orgID string, field ConversationField, value string) ([]entities.Conversation, error) {
	var column string
	switch field {
	case ByContactPhone:
		column = "contact_phone"
	case ByContactID:
		column = "contact_id"
	default:
		return nil, fmt.Errorf("unsupported conversation field %q", field)
	}

	rows, err := r.db.Query(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE organization_id = $1 AND "+column+" = $2 ORDER BY created_at",
		orgID, value)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	defer rows.Close()

	var result []entities.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errx.WrapPostgres(err, ErrNotFound)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *entities.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO conversations (id, organization_id, platform, contact_id, contact_phone, contact_name,
			status, ai_enabled, funnel_stage, last_message, unread_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.OrganizationID, string(c.Platform), c.ContactID, c.ContactPhone, c.ContactName,
		c.Status, c.AIEnabled, c.FunnelStage, c.LastMessage, c.UnreadCount, c.CreatedAt)
	return errx.WrapPostgres(err, ErrNotFound)
}

func (r *PostgresConversationRepository) UpdateLastMessage(ctx context.Context, orgID, id, text string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE conversations SET last_message = $3, last_message_at = $4 WHERE organization_id = $1 AND id = $2",
		orgID, id, text, at)
	if err != nil {
		return errx.WrapPostgres(err, ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) IncrementUnread(ctx context.Context, orgID, id string, delta int) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE conversations SET unread_count = unread_count + $3 WHERE organization_id = $1 AND id = $2",
		orgID, id, delta)
	if err != nil {
		return errx.WrapPostgres(err, ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
