package repository

import (
	"context"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresContactRepository struct {
	db *pgxpool.Pool
}

func NewContactRepository(db *pgxpool.Pool) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

func (r *PostgresContactRepository) FindByPhone(ctx context.Context, orgID, phone string) (*entities.Contact, error) {
	var c entities.Contact
	err := r.db.QueryRow(ctx, `
		SELECT id, organization_id, name, phone, company, email, funnel_stage, created_at, updated_at
		FROM contacts WHERE organization_id = $1 AND phone = $2
		ORDER BY created_at LIMIT 1`, orgID, phone).
		Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Phone, &c.Company, &c.Email, &c.FunnelStage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	return &c, nil
}

func (r *PostgresContactRepository) Create(ctx context.Context, c *entities.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.Exec(ctx, `
		INSERT INTO contacts (id, organization_id, name, phone, company, email, funnel_stage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.OrganizationID, c.Name, c.Phone, c.Company, c.Email, c.FunnelStage, c.CreatedAt, c.UpdatedAt)
	return errx.WrapPostgres(err, ErrNotFound)
}

func (r *PostgresContactRepository) Update(ctx context.Context, c *entities.Contact) error {
	c.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE contacts SET name = $3, phone = $4, company = $5, email = $6, funnel_stage = $7, updated_at = $8
		WHERE organization_id = $1 AND id = $2`,
		c.OrganizationID, c.ID, c.Name, c.Phone, c.Company, c.Email, c.FunnelStage, c.UpdatedAt)
	if err != nil {
		return errx.WrapPostgres(err, ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
