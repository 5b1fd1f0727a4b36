package repository

import (
	"context"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresAgentRepository struct {
	db *pgxpool.Pool
}

func NewAgentRepository(db *pgxpool.Pool) *PostgresAgentRepository {
	return &PostgresAgentRepository{db: db}
}

const agentColumns = `id, organization_id, name, provider, model, api_key, base_url, system_prompt,
	knowledge_base_ids, channels, active, created_at`

func scanAgent(row pgx.Row) (*entities.Agent, error) {
	var (
		a        entities.Agent
		provider string
		channels []string
	)
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Name, &provider, &a.Model, &a.APIKey, &a.BaseURL,
		&a.SystemPrompt, &a.KnowledgeBaseIDs, &channels, &a.Active, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Provider = entities.Provider(provider)
	for _, ch := range channels {
		a.Channels = append(a.Channels, entities.Platform(ch))
	}
	return &a, nil
}

func (r *PostgresAgentRepository) GetByID(ctx context.Context, orgID, id string) (*entities.Agent, error) {
	a, err := scanAgent(r.db.QueryRow(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE organization_id = $1 AND id = $2", orgID, id))
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	return a, nil
}

func (r *PostgresAgentRepository) ListActive(ctx context.Context, orgID string) ([]entities.Agent, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+agentColumns+" FROM agents WHERE organization_id = $1 AND active ORDER BY created_at", orgID)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	defer rows.Close()

	var agents []entities.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, errx.WrapPostgres(err, ErrNotFound)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}
