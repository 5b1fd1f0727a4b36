package repository

import (
	"context"
	"strings"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresOrganizationRepository struct {
	db *pgxpool.Pool
}

func NewOrganizationRepository(db *pgxpool.Pool) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{db: db}
}

const organizationColumns = "id, name, invite_code, integrations, created_at"

func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*entities.Organization, error) {
	var o entities.Organization
	err := r.db.QueryRow(ctx, "SELECT "+organizationColumns+" FROM organizations WHERE id = $1", id).
		Scan(&o.ID, &o.Name, &o.InviteCode, &o.Integrations, &o.CreatedAt)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	return &o, nil
}

// FindByIntegration matches a dotted integration path (e.g. whatsapp.phone_number_id)
// inside the integrations JSONB document.
func (r *PostgresOrganizationRepository) FindByIntegration(ctx context.Context, field entities.IntegrationField, value string) (*entities.Organization, error) {
	if value == "" {
		return nil, ErrNotFound
	}
	path := strings.Split(string(field), ".")

	var o entities.Organization
	err := r.db.QueryRow(ctx,
		"SELECT "+organizationColumns+" FROM organizations WHERE integrations #>> $1 = $2 LIMIT 1",
		path, value,
	).Scan(&o.ID, &o.Name, &o.InviteCode, &o.Integrations, &o.CreatedAt)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	return &o, nil
}
