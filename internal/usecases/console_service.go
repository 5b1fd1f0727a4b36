package usecases

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"crm_engine/internal/errx"
	"crm_engine/internal/knowledge"
	"crm_engine/internal/llm"
	"crm_engine/internal/repository"
	"crm_engine/internal/tools"
	logx "crm_engine/pkg/logger"
)

// ConsoleTurn is one transcript line typed by the operator or answered by the agent.
type ConsoleTurn struct {
	Role string `json:"role" binding:"required,oneof=user assistant"`
	Text string `json:"text"`
}

type ConsoleRequest struct {
	Messages     []ConsoleTurn `json:"messages" binding:"required,dive"`
	ContactName  string        `json:"contact_name"`
	ContactPhone string        `json:"contact_phone"`
}

type ConsoleReply struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ConsoleService runs an agent synchronously for the test console. It uses
// the same orchestrator and tools as the auto-responder, with knowledge read
// through the snapshot cache.
type ConsoleService struct {
	store        *repository.Store
	retriever    *knowledge.Retriever
	providers    ProviderFactory
	orchestrator *llm.Orchestrator
}

func NewConsoleService(store *repository.Store, snapshots *knowledge.SnapshotCache, providers ProviderFactory, orchestrator *llm.Orchestrator) *ConsoleService {
	return &ConsoleService{
		store:        store,
		retriever:    knowledge.NewRetriever(snapshots),
		providers:    providers,
		orchestrator: orchestrator,
	}
}

func (s *ConsoleService) Chat(ctx context.Context, orgID, agentID string, req ConsoleRequest) (*ConsoleReply, error) {
	agent, err := s.store.Agents.GetByID(ctx, orgID, agentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errx.New(err, http.StatusNotFound, "agent not found")
	}
	if err != nil {
		return nil, err
	}

	history, query := consoleHistory(req.Messages)
	if len(history) == 0 || query == "" {
		return nil, errx.New(nil, http.StatusBadRequest, "transcript has no user message")
	}

	provider, err := s.providers.ForAgent(*agent)
	if err != nil {
		return nil, errx.New(err, http.StatusUnprocessableEntity, err.Error())
	}

	retrieved := s.retriever.Retrieve(ctx, orgID, agent.KnowledgeBaseIDs, query)
	executor := tools.NewExecutor(s.store.Contacts, s.store.Orders, retrieved.Loaded, tools.Context{
		OrganizationID: orgID,
		ContactName:    req.ContactName,
		ContactPhone:   req.ContactPhone,
	})

	text, err := s.orchestrator.Run(ctx, provider, llm.Request{
		Model:     agent.Model,
		System:    knowledge.Compose(agent.SystemPrompt, retrieved.Selected),
		History:   history,
		Tools:     tools.Catalog(),
		MaxTokens: s.providers.MaxTokens(),
	}, executor)
	if err != nil {
		var perr *llm.ProviderError
		if errors.As(err, &perr) {
			logx.Warn().Err(err).Str("agent_id", agent.ID).Str("provider", perr.Provider).Msg("console provider failure")
			return nil, errx.New(err, http.StatusBadGateway, perr.Message)
		}
		return nil, err
	}

	return &ConsoleReply{Reply: text, Provider: provider.Name(), Model: agent.Model}, nil
}

// consoleHistory converts the transcript and returns the last user text as
// the retrieval query.
func consoleHistory(msgs []ConsoleTurn) ([]llm.Turn, string) {
	var (
		turns []llm.Turn
		query string
	)
	for _, m := range msgs {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == string(llm.RoleAssistant) {
			role = llm.RoleAssistant
		} else {
			query = text
		}
		turns = append(turns, llm.Turn{Role: role, Text: text})
	}
	return turns, query
}
