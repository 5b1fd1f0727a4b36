package repository

import (
	"context"
	"errors"
	"time"

	"crm_engine/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

// ConversationField is the single equality field a conversation lookup filters on.
type ConversationField string

const (
	ByContactPhone ConversationField = "contact_phone"
	ByContactID    ConversationField = "contact_id"
)

type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Organization, error)
	// FindByIntegration does a collection-wide lookup on a channel integration field.
	FindByIntegration(ctx context.Context, field entities.IntegrationField, value string) (*entities.Organization, error)
}

type AgentRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*entities.Agent, error)
	ListActive(ctx context.Context, orgID string) ([]entities.Agent, error)
}

type KnowledgeRepository interface {
	GetBase(ctx context.Context, orgID, id string) (*entities.KnowledgeBase, error)
	// ListRows returns rows in their original import order.
	ListRows(ctx context.Context, orgID, id string) ([]entities.Row, error)
	// ReplaceRows deletes the old rows and writes the new ones (full re-import).
	ReplaceRows(ctx context.Context, orgID, id string, columns []string, rows []entities.Row) error
}

type ConversationRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*entities.Conversation, error)
	FindBy(ctx context.Context, orgID string, field ConversationField, value string) ([]entities.Conversation, error)
	Create(ctx context.Context, c *entities.Conversation) error
	UpdateLastMessage(ctx context.Context, orgID, id, text string, at time.Time) error
	// IncrementUnread is an atomic counter update.
	IncrementUnread(ctx context.Context, orgID, id string, delta int) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *entities.Message) error
	// ListRecent returns the newest limit messages, oldest first.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
}

type ContactRepository interface {
	FindByPhone(ctx context.Context, orgID, phone string) (*entities.Contact, error)
	Create(ctx context.Context, c *entities.Contact) error
	Update(ctx context.Context, c *entities.Contact) error
}

type OrderRepository interface {
	Count(ctx context.Context, orgID string) (int, error)
	Create(ctx context.Context, o *entities.Order) error
}

// Store groups the repositories the engine depends on.
type Store struct {
	Organizations OrganizationRepository
	Agents        AgentRepository
	Knowledge     KnowledgeRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Contacts      ContactRepository
	Orders        OrderRepository
}

// NewPostgresStore wires every repository to one connection pool.
func NewPostgresStore(db *pgxpool.Pool) *Store {
	return &Store{
		Organizations: NewOrganizationRepository(db),
		Agents:        NewAgentRepository(db),
		Knowledge:     NewKnowledgeRepository(db),
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Contacts:      NewContactRepository(db),
		Orders:        NewOrderRepository(db),
	}
}
