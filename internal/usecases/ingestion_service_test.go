package usecases

import (
	"context"
	"testing"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whatsappInbound(text, externalID string) InboundMessage {
	return InboundMessage{
		Channel:      "whatsapp",
		Platform:     entities.PlatformWhatsApp,
		LookupField:  entities.FieldWhatsAppPhoneNumberID,
		LookupValue:  "pn-100",
		ContactID:    "5215550001",
		ContactPhone: "5215550001",
		ContactName:  "Ana",
		Text:         text,
		ExternalID:   externalID,
	}
}

func newIngestion(t *testing.T) (*repository.MemoryStore, entities.Organization, *IngestionService, *[]IngestedEvent) {
	t.Helper()
	mem := repository.NewMemoryStore()
	org := mem.AddOrganization(entities.Organization{
		Name: "Autos del Norte",
		Integrations: entities.Integrations{
			WhatsApp:  entities.WhatsAppIntegration{PhoneNumberID: "pn-100", AccessToken: "tok"},
			Instagram: entities.MetaPageIntegration{PageID: "page-ig"},
		},
	})
	var events []IngestedEvent
	svc := NewIngestionService(mem.Store(), &mapDeduper{}, func(_ context.Context, evt IngestedEvent) {
		events = append(events, evt)
	})
	return mem, org, svc, &events
}

func TestIngest_StoresMessageAndCreatesConversation(t *testing.T) {
	mem, org, svc, events := newIngestion(t)
	ctx := context.Background()

	outcome, err := svc.Ingest(ctx, whatsappInbound("hola, busco un corolla", "wamid.1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)

	convs := mem.Conversations(org.ID)
	require.Len(t, convs, 1)
	conv := convs[0]
	assert.Equal(t, entities.PlatformWhatsApp, conv.Platform)
	assert.Equal(t, entities.ConversationOpen, conv.Status)
	assert.True(t, conv.AIEnabled)
	assert.Equal(t, entities.DefaultFunnelStage, conv.FunnelStage)
	assert.Equal(t, "5215550001", conv.ContactPhone)
	assert.Equal(t, "Ana", conv.ContactName)
	assert.Equal(t, "hola, busco un corolla", conv.LastMessage)
	assert.Equal(t, 1, conv.UnreadCount)

	msgs := mem.Messages(conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.DirectionIncoming, msgs[0].Direction)
	assert.Equal(t, entities.SourceHuman, msgs[0].Source)
	assert.Equal(t, "wamid.1", msgs[0].ExternalID)
	assert.Equal(t, "5215550001", msgs[0].SenderID)

	require.Len(t, *events, 1)
	assert.Equal(t, org.ID, (*events)[0].Organization.ID)
	assert.Equal(t, conv.ID, (*events)[0].Conversation.ID)
	assert.Equal(t, msgs[0].ID, (*events)[0].Message.ID)
}

func TestIngest_ReusesOpenConversation(t *testing.T) {
	mem, org, svc, _ := newIngestion(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, whatsappInbound("hola", "wamid.1"))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, whatsappInbound("sigues ahi?", "wamid.2"))
	require.NoError(t, err)

	convs := mem.Conversations(org.ID)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Len(t, mem.Messages(convs[0].ID), 2)
}

func TestIngest_DuplicateDelivery(t *testing.T) {
	mem, org, svc, events := newIngestion(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, whatsappInbound("hola", "wamid.1"))
	require.NoError(t, err)
	outcome, err := svc.Ingest(ctx, whatsappInbound("hola", "wamid.1"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, outcome)
	convs := mem.Conversations(org.ID)
	require.Len(t, convs, 1)
	assert.Len(t, mem.Messages(convs[0].ID), 1)
	assert.Len(t, *events, 1)
}

func TestIngest_DroppedEvents(t *testing.T) {
	mem, org, svc, events := newIngestion(t)
	ctx := context.Background()

	unknown := whatsappInbound("hola", "wamid.9")
	unknown.LookupValue = "pn-unknown"
	outcome, err := svc.Ingest(ctx, unknown)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownOrg, outcome)

	outcome, err = svc.Ingest(ctx, whatsappInbound("   ", "wamid.10"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	assert.Empty(t, mem.Conversations(org.ID))
	assert.Empty(t, *events)
}

func TestIngest_KnownOrganizationID(t *testing.T) {
	mem, org, svc, _ := newIngestion(t)

	outcome, err := svc.Ingest(context.Background(), InboundMessage{
		Channel:        "whatsapp_device",
		Platform:       entities.PlatformWhatsApp,
		OrganizationID: org.ID,
		ContactPhone:   "5215550002",
		Text:           "buenas",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, outcome)

	convs := mem.Conversations(org.ID)
	require.Len(t, convs, 1)
	assert.Equal(t, "5215550002", convs[0].ContactID)
	assert.Equal(t, "5215550002", convs[0].ContactName)
}

func TestResolveConversation(t *testing.T) {
	mem, org, svc, _ := newIngestion(t)
	store := mem.Store()
	ctx := context.Background()

	closed := &entities.Conversation{
		OrganizationID: org.ID,
		Platform:       entities.PlatformInstagram,
		ContactID:      "ig-user-1",
		Status:         entities.ConversationClosed,
	}
	require.NoError(t, store.Conversations.Create(ctx, closed))
	otherPlatform := &entities.Conversation{
		OrganizationID: org.ID,
		Platform:       entities.PlatformMessenger,
		ContactID:      "ig-user-1",
		Status:         entities.ConversationOpen,
	}
	require.NoError(t, store.Conversations.Create(ctx, otherPlatform))

	in := InboundMessage{Platform: entities.PlatformInstagram, ContactID: "ig-user-1", ContactName: "Luis"}

	first, err := svc.ResolveConversation(ctx, org.ID, in)
	require.NoError(t, err)
	assert.NotEqual(t, closed.ID, first.ID)
	assert.NotEqual(t, otherPlatform.ID, first.ID)
	assert.Equal(t, entities.PlatformInstagram, first.Platform)
	assert.True(t, first.AIEnabled)

	second, err := svc.ResolveConversation(ctx, org.ID, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, mem.Conversations(org.ID), 3)
}

func TestIngestKey(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := InboundMessage{Platform: entities.PlatformInstagram, ContactID: "u1", Text: "hola", Timestamp: ts}

	assert.Equal(t, IngestKey("org-1", a), IngestKey("org-1", a))
	assert.NotEqual(t, IngestKey("org-1", a), IngestKey("org-2", a))

	b := a
	b.Text = "adios"
	assert.NotEqual(t, IngestKey("org-1", a), IngestKey("org-1", b))

	c := a
	c.Timestamp = ts.Add(time.Second)
	assert.NotEqual(t, IngestKey("org-1", a), IngestKey("org-1", c))

	withID := a
	withID.ExternalID = "mid.1"
	other := b
	other.ExternalID = "mid.1"
	assert.Equal(t, IngestKey("org-1", withID), IngestKey("org-1", other))
	assert.Equal(t, "org-1:instagram:id:mid.1", IngestKey("org-1", withID))
}
