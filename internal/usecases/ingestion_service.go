package usecases

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/interfaces"
	"crm_engine/internal/metrics"
	"crm_engine/internal/repository"
	logx "crm_engine/pkg/logger"

	"golang.org/x/crypto/blake2b"
)

type IngestOutcome string

const (
	OutcomeStored     IngestOutcome = "stored"
	OutcomeDuplicate  IngestOutcome = "duplicate"
	OutcomeUnknownOrg IngestOutcome = "unknown_org"
	OutcomeIgnored    IngestOutcome = "ignored"
)

// InboundMessage is a channel event normalized by a webhook adapter.
type InboundMessage struct {
	// Channel labels the adapter that produced the event (metrics and logs).
	Channel  string
	Platform entities.Platform

	// The owning organization is found by LookupField = LookupValue unless
	// OrganizationID is already known.
	LookupField    entities.IntegrationField
	LookupValue    string
	OrganizationID string

	ContactID    string
	ContactPhone string
	ContactName  string
	Text         string

	// ExternalID is the provider message id, when the payload carries one.
	ExternalID string
	Timestamp  time.Time
}

// IngestedEvent is handed to the notify hook once a message is persisted.
type IngestedEvent struct {
	Organization entities.Organization
	Conversation entities.Conversation
	Message      entities.Message
}

type IngestionService struct {
	store  *repository.Store
	dedup  interfaces.Deduper
	notify func(ctx context.Context, evt IngestedEvent)
	now    func() time.Time
}

func NewIngestionService(store *repository.Store, dedup interfaces.Deduper, notify func(ctx context.Context, evt IngestedEvent)) *IngestionService {
	return &IngestionService{store: store, dedup: dedup, notify: notify, now: time.Now}
}

// Ingest persists one inbound message. Dropped events (unknown organization,
// duplicates, empty text) are reported through the outcome, not as errors.
func (s *IngestionService) Ingest(ctx context.Context, in InboundMessage) (IngestOutcome, error) {
	outcome, err := s.ingest(ctx, in)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(in.Channel, "error").Inc()
		return outcome, err
	}
	metrics.WebhookEventsTotal.WithLabelValues(in.Channel, string(outcome)).Inc()
	return outcome, nil
}

func (s *IngestionService) ingest(ctx context.Context, in InboundMessage) (IngestOutcome, error) {
	if strings.TrimSpace(in.Text) == "" {
		return OutcomeIgnored, nil
	}

	org, err := s.resolveOrganization(ctx, in)
	if errors.Is(err, repository.ErrNotFound) {
		logx.Warn().Str("channel", in.Channel).Str("lookup_field", string(in.LookupField)).Str("lookup_value", in.LookupValue).Msg("no organization owns inbound event")
		return OutcomeUnknownOrg, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve organization: %w", err)
	}

	key := IngestKey(org.ID, in)
	if s.dedup != nil {
		first, err := s.dedup.FirstSeen(ctx, key)
		if err != nil {
			logx.Warn().Err(err).Str("org_id", org.ID).Msg("dedup check failed, accepting event")
		} else if !first {
			logx.Debug().Str("org_id", org.ID).Str("external_id", in.ExternalID).Msg("duplicate inbound event")
			return OutcomeDuplicate, nil
		}
	}

	conv, msg, err := s.persist(ctx, org.ID, in)
	if err != nil {
		if s.dedup != nil {
			if ferr := s.dedup.Forget(ctx, key); ferr != nil {
				logx.Warn().Err(ferr).Str("org_id", org.ID).Msg("could not release dedup key")
			}
		}
		return "", err
	}

	logx.Info().
		Str("org_id", org.ID).
		Str("conversation_id", conv.ID).
		Str("platform", string(in.Platform)).
		Str("channel", in.Channel).
		Msg("inbound message stored")

	if s.notify != nil {
		s.notify(ctx, IngestedEvent{Organization: *org, Conversation: *conv, Message: msg})
	}
	return OutcomeStored, nil
}

// persist resolves the conversation and appends the inbound message to it.
func (s *IngestionService) persist(ctx context.Context, orgID string, in InboundMessage) (*entities.Conversation, entities.Message, error) {
	conv, err := s.ResolveConversation(ctx, orgID, in)
	if err != nil {
		return nil, entities.Message{}, err
	}

	now := s.now()
	sender := in.ContactID
	if in.Platform == entities.PlatformWhatsApp && in.ContactPhone != "" {
		sender = in.ContactPhone
	}
	msg := entities.Message{
		ConversationID: conv.ID,
		OrganizationID: orgID,
		Text:           in.Text,
		SenderID:       sender,
		SenderName:     in.ContactName,
		Direction:      entities.DirectionIncoming,
		Source:         entities.SourceHuman,
		ExternalID:     in.ExternalID,
		CreatedAt:      now,
	}
	if err := s.store.Messages.Create(ctx, &msg); err != nil {
		return nil, entities.Message{}, fmt.Errorf("persist inbound message: %w", err)
	}

	if err := s.store.Conversations.UpdateLastMessage(ctx, orgID, conv.ID, in.Text, now); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conv.ID).Msg("could not update last message")
	}
	if err := s.store.Conversations.IncrementUnread(ctx, orgID, conv.ID, 1); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conv.ID).Msg("could not increment unread count")
	}
	conv.LastMessage, conv.LastMessageAt = in.Text, now
	conv.UnreadCount++
	return conv, msg, nil
}

func (s *IngestionService) resolveOrganization(ctx context.Context, in InboundMessage) (*entities.Organization, error) {
	if in.OrganizationID != "" {
		return s.store.Organizations.GetByID(ctx, in.OrganizationID)
	}
	if in.LookupValue == "" {
		return nil, repository.ErrNotFound
	}
	return s.store.Organizations.FindByIntegration(ctx, in.LookupField, in.LookupValue)
}

// ResolveConversation finds the open conversation for the contact on the
// platform, or creates one. Lookup is by a single field (phone on WhatsApp,
// contact id elsewhere) with platform and status filtered in memory.
// Find-or-create is not atomic: concurrent first messages from a new contact
// can create two conversations.
func (s *IngestionService) ResolveConversation(ctx context.Context, orgID string, in InboundMessage) (*entities.Conversation, error) {
	field, value := repository.ByContactID, in.ContactID
	if in.Platform == entities.PlatformWhatsApp && in.ContactPhone != "" {
		field, value = repository.ByContactPhone, in.ContactPhone
	}

	found, err := s.store.Conversations.FindBy(ctx, orgID, field, value)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	for _, c := range found {
		if c.Platform == in.Platform && c.Status == entities.ConversationOpen {
			c := c
			return &c, nil
		}
	}

	contactID := in.ContactID
	if contactID == "" {
		contactID = in.ContactPhone
	}
	name := in.ContactName
	if name == "" {
		name = value
	}
	conv := &entities.Conversation{
		OrganizationID: orgID,
		Platform:       in.Platform,
		ContactID:      contactID,
		ContactPhone:   in.ContactPhone,
		ContactName:    name,
		Status:         entities.ConversationOpen,
		AIEnabled:      true,
		FunnelStage:    entities.DefaultFunnelStage,
		CreatedAt:      s.now(),
	}
	if err := s.store.Conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	logx.Info().Str("org_id", orgID).Str("conversation_id", conv.ID).Str("platform", string(in.Platform)).Msg("conversation created")
	return conv, nil
}

// IngestKey is the idempotency key of an inbound event: the provider message id
// when present, else a hash of its content.
func IngestKey(orgID string, in InboundMessage) string {
	if in.ExternalID != "" {
		return orgID + ":" + string(in.Platform) + ":id:" + in.ExternalID
	}

	var ts string
	if !in.Timestamp.IsZero() {
		ts = strconv.FormatInt(in.Timestamp.UnixNano(), 10)
	}
	sum := blake2b.Sum256([]byte(strings.Join([]string{
		string(in.Platform), orgID, in.ContactID, in.ContactPhone, in.Text, ts,
	}, "\x00")))
	return orgID + ":" + string(in.Platform) + ":sum:" + hex.EncodeToString(sum[:])
}
