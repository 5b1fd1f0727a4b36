package infrastructure

import (
	"context"
	"fmt"
	"time"

	logx "crm_engine/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

var migrations = []struct {
	name string
	sql  string
}{
	{"organizations", `
		CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			invite_code TEXT NOT NULL DEFAULT '',
			integrations JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{"agents", `
		CREATE TABLE IF NOT EXISTS agents (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			api_key TEXT NOT NULL DEFAULT '',
			base_url TEXT NOT NULL DEFAULT '',
			system_prompt TEXT NOT NULL DEFAULT '',
			knowledge_base_ids TEXT[] NOT NULL DEFAULT '{}',
			channels TEXT[] NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{"knowledge_bases", `
		CREATE TABLE IF NOT EXISTS knowledge_bases (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			columns TEXT[] NOT NULL DEFAULT '{}',
			row_count INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{"knowledge_rows", `
		CREATE TABLE IF NOT EXISTS knowledge_rows (
			id BIGSERIAL PRIMARY KEY,
			knowledge_base_id TEXT NOT NULL REFERENCES knowledge_bases(id) ON DELETE CASCADE,
			position INT NOT NULL,
			data JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS knowledge_rows_base_idx ON knowledge_rows (knowledge_base_id, position);`},
	{"conversations", `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			platform TEXT NOT NULL,
			contact_id TEXT NOT NULL DEFAULT '',
			contact_phone TEXT NOT NULL DEFAULT '',
			contact_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			ai_enabled BOOLEAN NOT NULL DEFAULT true,
			funnel_stage TEXT NOT NULL DEFAULT 'lead',
			last_message TEXT NOT NULL DEFAULT '',
			last_message_at TIMESTAMPTZ,
			unread_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS conversations_phone_idx ON conversations (organization_id, contact_phone);
		CREATE INDEX IF NOT EXISTS conversations_contact_idx ON conversations (organization_id, contact_id);`},
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			organization_id TEXT NOT NULL,
			text TEXT NOT NULL,
			sender_id TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			direction TEXT NOT NULL,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_at DESC);`},
	{"contacts", `
		CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL,
			company TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			funnel_stage TEXT NOT NULL DEFAULT 'lead',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS contacts_phone_idx ON contacts (organization_id, phone);`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			conversation_id TEXT NOT NULL DEFAULT '',
			order_number TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			items JSONB NOT NULL,
			total NUMERIC(15, 2) NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
}

// Migrate creates the schema if missing. Statements are idempotent.
func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := p.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("create %s table: %w", m.name, err)
		}
	}
	logx.Info().Int("tables", len(migrations)).Msg("database schema ready")
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
