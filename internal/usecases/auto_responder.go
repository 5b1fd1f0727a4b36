package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/knowledge"
	"crm_engine/internal/llm"
	"crm_engine/internal/metrics"
	"crm_engine/internal/repository"
	"crm_engine/internal/tools"
	logx "crm_engine/pkg/logger"
)

// HistoryLimit is how many recent messages are sent to the model.
const HistoryLimit = 10

var ErrNoActiveAgent = errors.New("no active agent for platform")

type ReplyOutcome string

const (
	ReplySent          ReplyOutcome = "replied"
	ReplySkipOutgoing  ReplyOutcome = "skipped_outgoing"
	ReplySkipAgent     ReplyOutcome = "skipped_agent"
	ReplyAIDisabled    ReplyOutcome = "ai_disabled"
	ReplyNoAgent       ReplyOutcome = "no_agent"
	ReplyConfigError   ReplyOutcome = "config_error"
	ReplyProviderError ReplyOutcome = "provider_error"
	ReplyEmpty         ReplyOutcome = "empty"
	ReplyFailed        ReplyOutcome = "failed"
)

// ProviderFactory resolves the provider adapter configured on an agent.
type ProviderFactory interface {
	ForAgent(agent entities.Agent) (llm.Provider, error)
	MaxTokens() int
}

// ReplySender delivers a persisted reply to the contact.
type ReplySender interface {
	Deliver(ctx context.Context, org entities.Organization, conv entities.Conversation, text string) error
}

// AutoResponder answers persisted inbound messages with the organization's agent.
type AutoResponder struct {
	store        *repository.Store
	retriever    *knowledge.Retriever
	providers    ProviderFactory
	orchestrator *llm.Orchestrator
	delivery     ReplySender
	now          func() time.Time
}

func NewAutoResponder(store *repository.Store, retriever *knowledge.Retriever, providers ProviderFactory, orchestrator *llm.Orchestrator, delivery ReplySender) *AutoResponder {
	return &AutoResponder{
		store:        store,
		retriever:    retriever,
		providers:    providers,
		orchestrator: orchestrator,
		delivery:     delivery,
		now:          time.Now,
	}
}

// HandleMessage is the ingestion notify hook. Failures end here: they are
// logged and counted, never returned.
func (a *AutoResponder) HandleMessage(ctx context.Context, evt IngestedEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AutoReplyTotal.WithLabelValues(string(ReplyFailed)).Inc()
			logx.Error().Interface("panic", r).
				Str("org_id", evt.Organization.ID).
				Str("conversation_id", evt.Conversation.ID).
				Msg("auto responder panicked")
		}
	}()

	outcome, err := a.Respond(ctx, evt)
	metrics.AutoReplyTotal.WithLabelValues(string(outcome)).Inc()

	log := logx.Debug()
	switch outcome {
	case ReplySent:
		log = logx.Info()
	case ReplyConfigError, ReplyNoAgent, ReplyEmpty:
		log = logx.Warn()
	case ReplyProviderError, ReplyFailed:
		log = logx.Error()
	}
	log.Err(err).
		Str("org_id", evt.Organization.ID).
		Str("conversation_id", evt.Conversation.ID).
		Str("platform", string(evt.Conversation.Platform)).
		Str("outcome", string(outcome)).
		Msg("auto responder finished")
}

// Respond runs one auto-reply attempt and reports what happened.
func (a *AutoResponder) Respond(ctx context.Context, evt IngestedEvent) (ReplyOutcome, error) {
	msg := evt.Message
	org := evt.Organization

	if msg.Direction != entities.DirectionIncoming {
		return ReplySkipOutgoing, nil
	}
	if msg.Source == entities.SourceAI {
		return ReplySkipAgent, nil
	}

	// The flag may have been switched off since ingestion.
	conv, err := a.store.Conversations.GetByID(ctx, org.ID, evt.Conversation.ID)
	if err != nil {
		return ReplyFailed, fmt.Errorf("load conversation: %w", err)
	}
	if !conv.AIEnabled {
		return ReplyAIDisabled, nil
	}

	agents, err := a.store.Agents.ListActive(ctx, org.ID)
	if err != nil {
		return ReplyFailed, fmt.Errorf("list agents: %w", err)
	}
	for _, ag := range agents {
		if ag.ID == msg.SenderID {
			return ReplySkipAgent, nil
		}
	}
	agent, ok := agentFor(agents, conv.Platform)
	if !ok {
		return ReplyNoAgent, ErrNoActiveAgent
	}

	provider, err := a.providers.ForAgent(agent)
	if err != nil {
		return ReplyConfigError, err
	}

	recent, err := a.store.Messages.ListRecent(ctx, conv.ID, HistoryLimit)
	if err != nil {
		return ReplyFailed, fmt.Errorf("load history: %w", err)
	}

	if len(agent.KnowledgeBaseIDs) == 0 {
		logx.Info().Str("agent_id", agent.ID).Msg("agent has no knowledge base assigned")
	}
	retrieved := a.retriever.Retrieve(ctx, org.ID, agent.KnowledgeBaseIDs, msg.Text)

	executor := tools.NewExecutor(a.store.Contacts, a.store.Orders, retrieved.Loaded, tools.Context{
		OrganizationID: org.ID,
		ConversationID: conv.ID,
		ContactName:    conv.ContactName,
		ContactPhone:   conv.ContactPhone,
	})
	req := llm.Request{
		Model:     agent.Model,
		System:    knowledge.Compose(agent.SystemPrompt, retrieved.Selected),
		History:   historyTurns(recent),
		Tools:     tools.Catalog(),
		MaxTokens: a.providers.MaxTokens(),
	}

	text, err := a.orchestrator.Run(ctx, provider, req, executor)
	if err != nil {
		var perr *llm.ProviderError
		if errors.As(err, &perr) {
			return ReplyProviderError, err
		}
		return ReplyFailed, err
	}
	if text == "" {
		return ReplyEmpty, nil
	}

	now := a.now()
	reply := entities.Message{
		ConversationID: conv.ID,
		OrganizationID: org.ID,
		Text:           text,
		SenderID:       agent.ID,
		SenderName:     agent.Name,
		Direction:      entities.DirectionOutgoing,
		Source:         entities.SourceAI,
		CreatedAt:      now,
	}
	if err := a.store.Messages.Create(ctx, &reply); err != nil {
		return ReplyFailed, fmt.Errorf("persist reply: %w", err)
	}
	if err := a.store.Conversations.UpdateLastMessage(ctx, org.ID, conv.ID, text, now); err != nil {
		logx.Warn().Err(err).Str("conversation_id", conv.ID).Msg("could not update last message")
	}

	if a.delivery != nil {
		if err := a.delivery.Deliver(ctx, org, *conv, text); err != nil {
			logx.Warn().Err(err).Str("conversation_id", conv.ID).Str("platform", string(conv.Platform)).Msg("reply stored but not delivered")
		}
	}
	return ReplySent, nil
}

// agentFor returns the first active agent serving the platform.
func agentFor(agents []entities.Agent, platform entities.Platform) (entities.Agent, bool) {
	for _, ag := range agents {
		if ag.Active && ag.ServesPlatform(platform) {
			return ag, true
		}
	}
	return entities.Agent{}, false
}

func historyTurns(msgs []entities.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		role := llm.RoleUser
		if m.Direction == entities.DirectionOutgoing {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Text})
	}
	return turns
}
