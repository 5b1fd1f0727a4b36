package knowledge

import (
	"context"

	"crm_engine/internal/entities"
	"crm_engine/internal/repository"
	logx "crm_engine/pkg/logger"
)

const (
	// MaxRankedRows bounds the rows per base placed in a prompt when the query ranks something.
	MaxRankedRows = 30
	// FallbackRows is used when the query is empty or nothing scores.
	FallbackRows = 20
)

// Base is a knowledge base with a set of its rows.
type Base struct {
	Meta entities.KnowledgeBase
	Rows []entities.Row
}

// Loader fetches one base with all of its rows.
type Loader interface {
	LoadBase(ctx context.Context, orgID, id string) (*Base, error)
}

// StoreLoader reads straight from the knowledge repository.
type StoreLoader struct {
	Repo repository.KnowledgeRepository
}

func (l StoreLoader) LoadBase(ctx context.Context, orgID, id string) (*Base, error) {
	meta, err := l.Repo.GetBase(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	rows, err := l.Repo.ListRows(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return &Base{Meta: *meta, Rows: rows}, nil
}

// Retrieval is the outcome of one retrieval pass.
type Retrieval struct {
	// Selected holds the bounded row subset per base, for the prompt.
	Selected []Base
	// Loaded holds every row of every base that loaded, for query_database.
	Loaded []Base
}

type Retriever struct {
	loader Loader
}

func NewRetriever(loader Loader) *Retriever {
	return &Retriever{loader: loader}
}

// Retrieve loads each base and selects rows relevant to text. Bases that fail
// to load are skipped.
func (r *Retriever) Retrieve(ctx context.Context, orgID string, baseIDs []string, text string) Retrieval {
	q := ParseQuery(text)

	var out Retrieval
	for _, id := range baseIDs {
		base, err := r.loader.LoadBase(ctx, orgID, id)
		if err != nil {
			logx.Warn().Err(err).Str("org_id", orgID).Str("knowledge_base_id", id).Msg("skipping knowledge base")
			continue
		}
		out.Loaded = append(out.Loaded, *base)
		out.Selected = append(out.Selected, Base{Meta: base.Meta, Rows: SelectRows(base.Rows, q)})
	}
	return out
}

// SelectRows applies the prompt budget: top MaxRankedRows ranked rows, or the
// first FallbackRows rows when the query is empty or matches nothing.
func SelectRows(rows []entities.Row, q Query) []entities.Row {
	if !q.Empty() {
		if ranked := Rank(rows, q); len(ranked) > 0 {
			if len(ranked) > MaxRankedRows {
				ranked = ranked[:MaxRankedRows]
			}
			return ranked
		}
	}
	if len(rows) > FallbackRows {
		return rows[:FallbackRows]
	}
	return rows
}
