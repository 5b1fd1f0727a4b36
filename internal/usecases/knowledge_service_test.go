package usecases

import (
	"context"
	"net/http"
	"testing"

	"crm_engine/internal/entities"
	"crm_engine/internal/errx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeService_ReplaceRows(t *testing.T) {
	f := newConsoleFixture(t)
	ctx := context.Background()
	svc := NewKnowledgeService(f.mem.Store().Knowledge, f.snapshots)

	_, err := f.snapshots.LoadBase(ctx, f.org.ID, f.kb.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.snapshots.Len())

	kb, err := svc.ReplaceRows(ctx, f.org.ID, f.kb.ID, nil, []entities.Row{
		{"modelo": "Mazda 3", "precio": "19900"},
		{"modelo": "CX-5", "precio": "28900", "color": "gris"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, kb.RowCount)
	assert.Equal(t, []string{"color", "modelo", "precio"}, kb.Columns)
	assert.Zero(t, f.snapshots.Len())

	base, err := f.snapshots.LoadBase(ctx, f.org.ID, f.kb.ID)
	require.NoError(t, err)
	require.Len(t, base.Rows, 2)
	assert.Equal(t, "Mazda 3", base.Rows[0]["modelo"])
}

func TestKnowledgeService_ExplicitColumns(t *testing.T) {
	f := newConsoleFixture(t)
	svc := NewKnowledgeService(f.mem.Store().Knowledge, nil)

	kb, err := svc.ReplaceRows(context.Background(), f.org.ID, f.kb.ID, []string{"modelo", "precio"}, []entities.Row{{"modelo": "Sentra"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"modelo", "precio"}, kb.Columns)
}

func TestKnowledgeService_UnknownBase(t *testing.T) {
	f := newConsoleFixture(t)
	svc := NewKnowledgeService(f.mem.Store().Knowledge, f.snapshots)

	_, err := svc.ReplaceRows(context.Background(), f.org.ID, "nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))

	_, err = svc.ReplaceRows(context.Background(), "other-org", f.kb.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, errx.StatusOf(err))
}
