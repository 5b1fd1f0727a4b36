package repository

import (
	"context"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Count(ctx context.Context, orgID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders WHERE organization_id = $1", orgID).Scan(&n); err != nil {
		return 0, errx.WrapPostgres(err, ErrNotFound)
	}
	return n, nil
}

// Create stores items as JSONB. order_number carries no unique constraint, so
// concurrent callers deriving the same sequence both succeed.
func (r *PostgresOrderRepository) Create(ctx context.Context, o *entities.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, organization_id, conversation_id, order_number, customer_name, customer_phone,
			items, total, notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.OrganizationID, o.ConversationID, o.OrderNumber, o.CustomerName, o.CustomerPhone,
		o.Items, o.Total, o.Notes, o.Status, o.CreatedAt)
	return errx.WrapPostgres(err, ErrNotFound)
}
