package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crm_engine/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOrganizations_FindByIntegration(t *testing.T) {
	mem := NewMemoryStore()
	org := mem.AddOrganization(entities.Organization{
		Name:         "Acme",
		Integrations: entities.Integrations{Instagram: entities.MetaPageIntegration{PageID: "page-1"}},
	})
	store := mem.Store()
	ctx := context.Background()

	got, err := store.Organizations.FindByIntegration(ctx, entities.FieldInstagramPageID, "page-1")
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)

	_, err = store.Organizations.FindByIntegration(ctx, entities.FieldMessengerPageID, "page-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Unset fields never match an empty lookup value.
	_, err = store.Organizations.FindByIntegration(ctx, entities.FieldMessengerPageID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMessages_ListRecent(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		require.NoError(t, store.Messages.Create(ctx, &entities.Message{
			ConversationID: "c1",
			Text:           fmt.Sprintf("m%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Messages.Create(ctx, &entities.Message{ConversationID: "other", Text: "x", CreatedAt: base}))

	got, err := store.Messages.ListRecent(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "m5", got[0].Text)
	assert.Equal(t, "m14", got[9].Text)
}

func TestMemoryConversations_Counters(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()

	conv := &entities.Conversation{OrganizationID: "org", ContactPhone: "5511"}
	require.NoError(t, store.Conversations.Create(ctx, conv))
	require.NotEmpty(t, conv.ID)

	require.NoError(t, store.Conversations.IncrementUnread(ctx, "org", conv.ID, 1))
	require.NoError(t, store.Conversations.IncrementUnread(ctx, "org", conv.ID, 2))
	at := time.Now()
	require.NoError(t, store.Conversations.UpdateLastMessage(ctx, "org", conv.ID, "hola", at))

	got, err := store.Conversations.GetByID(ctx, "org", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UnreadCount)
	assert.Equal(t, "hola", got.LastMessage)

	assert.ErrorIs(t, store.Conversations.IncrementUnread(ctx, "other-org", conv.ID, 1), ErrNotFound)

	found, err := store.Conversations.FindBy(ctx, "org", ByContactPhone, "5511")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMemoryKnowledge_ReplaceRows(t *testing.T) {
	mem := NewMemoryStore()
	kb := mem.AddKnowledgeBase(entities.KnowledgeBase{OrganizationID: "org", Name: "Stock"}, []entities.Row{{"a": 1}})
	store := mem.Store()
	ctx := context.Background()

	require.NoError(t, store.Knowledge.ReplaceRows(ctx, "org", kb.ID, []string{"b"}, []entities.Row{{"b": 1}, {"b": 2}}))

	meta, err := store.Knowledge.GetBase(ctx, "org", kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.RowCount)
	assert.Equal(t, []string{"b"}, meta.Columns)

	rows, err := store.Knowledge.ListRows(ctx, "org", kb.ID)
	require.NoError(t, err)
	assert.Equal(t, []entities.Row{{"b": 1}, {"b": 2}}, rows)

	assert.ErrorIs(t, store.Knowledge.ReplaceRows(ctx, "other", kb.ID, nil, nil), ErrNotFound)
}
