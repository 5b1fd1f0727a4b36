package usecases

import (
	"context"
	"errors"
	"net/http"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"
	"crm_engine/internal/knowledge"
	"crm_engine/internal/repository"
	logx "crm_engine/pkg/logger"
)

// KnowledgeService handles full re-imports of knowledge-base rows.
type KnowledgeService struct {
	repo      repository.KnowledgeRepository
	snapshots *knowledge.SnapshotCache
}

func NewKnowledgeService(repo repository.KnowledgeRepository, snapshots *knowledge.SnapshotCache) *KnowledgeService {
	return &KnowledgeService{repo: repo, snapshots: snapshots}
}

// ReplaceRows swaps every row of the base. Columns default to the keys seen in
// the rows.
func (s *KnowledgeService) ReplaceRows(ctx context.Context, orgID, id string, columns []string, rows []entities.Row) (*entities.KnowledgeBase, error) {
	if len(columns) == 0 {
		columns = knowledge.RowColumns(nil, rows)
	}

	err := s.repo.ReplaceRows(ctx, orgID, id, columns, rows)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errx.New(err, http.StatusNotFound, "knowledge base not found")
	}
	if err != nil {
		return nil, err
	}

	if s.snapshots != nil {
		s.snapshots.Invalidate(orgID, id)
	}
	logx.Info().Str("org_id", orgID).Str("knowledge_base_id", id).Int("rows", len(rows)).Msg("knowledge base re-imported")

	return s.repo.GetBase(ctx, orgID, id)
}
