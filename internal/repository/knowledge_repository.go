package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresKnowledgeRepository struct {
	db *pgxpool.Pool
}

func NewKnowledgeRepository(db *pgxpool.Pool) *PostgresKnowledgeRepository {
	return &PostgresKnowledgeRepository{db: db}
}

func (r *PostgresKnowledgeRepository) GetBase(ctx context.Context, orgID, id string) (*entities.KnowledgeBase, error) {
	var kb entities.KnowledgeBase
	err := r.db.QueryRow(ctx, `
		SELECT id, organization_id, name, description, columns, row_count, updated_at
		FROM knowledge_bases WHERE organization_id = $1 AND id = $2`, orgID, id).
		Scan(&kb.ID, &kb.OrganizationID, &kb.Name, &kb.Description, &kb.Columns, &kb.RowCount, &kb.UpdatedAt)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	return &kb, nil
}

// ListRows returns the rows of a base in import order. The join on knowledge_bases
// keeps another organization's base unreadable.
func (r *PostgresKnowledgeRepository) ListRows(ctx context.Context, orgID, id string) ([]entities.Row, error) {
	if _, err := r.GetBase(ctx, orgID, id); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT kr.data FROM knowledge_rows kr
		JOIN knowledge_bases kb ON kb.id = kr.knowledge_base_id
		WHERE kb.organization_id = $1 AND kr.knowledge_base_id = $2
		ORDER BY kr.position`, orgID, id)
	if err != nil {
		return nil, errx.WrapPostgres(err, ErrNotFound)
	}
	defer rows.Close()

	var result []entities.Row
	for rows.Next() {
		row := entities.Row{}
		if err := rows.Scan(&row); err != nil {
			return nil, errx.WrapPostgres(err, ErrNotFound)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ReplaceRows performs a full re-import in one transaction: old rows deleted,
// new rows copied in, metadata updated.
func (r *PostgresKnowledgeRepository) ReplaceRows(ctx context.Context, orgID, id string, columns []string, rows []entities.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE knowledge_bases SET columns = $3, row_count = $4, updated_at = $5
		WHERE organization_id = $1 AND id = $2`,
		orgID, id, cleanColumns(columns), len(rows), time.Now())
	if err != nil {
		return errx.WrapPostgres(err, ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, "DELETE FROM knowledge_rows WHERE knowledge_base_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete old rows: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"knowledge_rows"},
		[]string{"knowledge_base_id", "position", "data"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			return []any{id, i, rows[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// cleanColumns trims headers and drops empty or duplicate ones.
func cleanColumns(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
