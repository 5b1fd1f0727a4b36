package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm_engine/internal/entities"

	"github.com/google/uuid"
)

// MemoryStore keeps every collection in process memory. It backs local runs
// without DATABASE_URL and the test suites.
type MemoryStore struct {
	mu            sync.RWMutex
	organizations map[string]entities.Organization
	agents        map[string]entities.Agent
	bases         map[string]entities.KnowledgeBase
	rows          map[string][]entities.Row
	conversations map[string]entities.Conversation
	messages      []entities.Message
	contacts      map[string]entities.Contact
	orders        []entities.Order

	// FailWrites makes contact and order writes fail, for exercising error paths.
	FailWrites error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: make(map[string]entities.Organization),
		agents:        make(map[string]entities.Agent),
		bases:         make(map[string]entities.KnowledgeBase),
		rows:          make(map[string][]entities.Row),
		conversations: make(map[string]entities.Conversation),
		contacts:      make(map[string]entities.Contact),
	}
}

// Store exposes the memory collections through the repository interfaces.
func (s *MemoryStore) Store() *Store {
	return &Store{
		Organizations: memOrganizations{s},
		Agents:        memAgents{s},
		Knowledge:     memKnowledge{s},
		Conversations: memConversations{s},
		Messages:      memMessages{s},
		Contacts:      memContacts{s},
		Orders:        memOrders{s},
	}
}

func (s *MemoryStore) AddOrganization(o entities.Organization) entities.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.organizations[o.ID] = o
	return o
}

func (s *MemoryStore) AddAgent(a entities.Agent) entities.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.agents[a.ID] = a
	return a
}

func (s *MemoryStore) AddKnowledgeBase(kb entities.KnowledgeBase, rows []entities.Row) entities.KnowledgeBase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kb.ID == "" {
		kb.ID = uuid.NewString()
	}
	kb.RowCount = len(rows)
	s.bases[kb.ID] = kb
	s.rows[kb.ID] = append([]entities.Row(nil), rows...)
	return kb
}

func (s *MemoryStore) AddOrder(o entities.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.orders = append(s.orders, o)
}

func (s *MemoryStore) Contacts(orgID string) []entities.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Contact
	for _, c := range s.contacts {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	return out
}

func (s *MemoryStore) Orders(orgID string) []entities.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Order
	for _, o := range s.orders {
		if o.OrganizationID == orgID {
			out = append(out, o)
		}
	}
	return out
}

func (s *MemoryStore) Conversations(orgID string) []entities.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Conversation
	for _, c := range s.conversations {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) Messages(conversationID string) []entities.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

type memOrganizations struct{ s *MemoryStore }

func (r memOrganizations) GetByID(_ context.Context, id string) (*entities.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r memOrganizations) FindByIntegration(_ context.Context, field entities.IntegrationField, value string) (*entities.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if value == "" {
		return nil, ErrNotFound
	}
	for _, o := range r.s.organizations {
		if o.Integrations.Lookup(field) == value {
			o := o
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

type memAgents struct{ s *MemoryStore }

func (r memAgents) GetByID(_ context.Context, orgID, id string) (*entities.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.agents[id]
	if !ok || a.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r memAgents) ListActive(_ context.Context, orgID string) ([]entities.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entities.Agent
	for _, a := range r.s.agents {
		if a.OrganizationID == orgID && a.Active {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memKnowledge struct{ s *MemoryStore }

func (r memKnowledge) GetBase(_ context.Context, orgID, id string) (*entities.KnowledgeBase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	kb, ok := r.s.bases[id]
	if !ok || kb.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return &kb, nil
}

func (r memKnowledge) ListRows(_ context.Context, orgID, id string) ([]entities.Row, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	kb, ok := r.s.bases[id]
	if !ok || kb.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return append([]entities.Row(nil), r.s.rows[id]...), nil
}

func (r memKnowledge) ReplaceRows(_ context.Context, orgID, id string, columns []string, rows []entities.Row) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kb, ok := r.s.bases[id]
	if !ok || kb.OrganizationID != orgID {
		return ErrNotFound
	}
	kb.Columns = append([]string(nil), columns...)
	kb.RowCount = len(rows)
	kb.UpdatedAt = time.Now()
	r.s.bases[id] = kb
	r.s.rows[id] = append([]entities.Row(nil), rows...)
	return nil
}

type memConversations struct{ s *MemoryStore }

func (r memConversations) GetByID(_ context.Context, orgID, id string) (*entities.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok || c.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r memConversations) FindBy(_ context.Context, orgID string, field ConversationField, value string) ([]entities.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entities.Conversation
	for _, c := range r.s.conversations {
		if c.OrganizationID != orgID {
			continue
		}
		switch field {
		case ByContactPhone:
			if c.ContactPhone == value {
				out = append(out, c)
			}
		case ByContactID:
			if c.ContactID == value {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memConversations) Create(_ context.Context, c *entities.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.s.conversations[c.ID] = *c
	return nil
}

func (r memConversations) UpdateLastMessage(_ context.Context, orgID, id, text string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok || c.OrganizationID != orgID {
		return ErrNotFound
	}
	c.LastMessage = text
	c.LastMessageAt = at
	r.s.conversations[id] = c
	return nil
}

func (r memConversations) IncrementUnread(_ context.Context, orgID, id string, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok || c.OrganizationID != orgID {
		return ErrNotFound
	}
	c.UnreadCount += delta
	r.s.conversations[id] = c
	return nil
}

type memMessages struct{ s *MemoryStore }

func (r memMessages) Create(_ context.Context, m *entities.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.s.messages = append(r.s.messages, *m)
	return nil
}

func (r memMessages) ListRecent(_ context.Context, conversationID string, limit int) ([]entities.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entities.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memContacts struct{ s *MemoryStore }

func (r memContacts) FindByPhone(_ context.Context, orgID, phone string) (*entities.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.contacts {
		if c.OrganizationID == orgID && c.Phone == phone {
			c := c
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r memContacts) Create(_ context.Context, c *entities.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailWrites != nil {
		return r.s.FailWrites
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.contacts[c.ID] = *c
	return nil
}

func (r memContacts) Update(_ context.Context, c *entities.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailWrites != nil {
		return r.s.FailWrites
	}
	if _, ok := r.s.contacts[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now()
	r.s.contacts[c.ID] = *c
	return nil
}

type memOrders struct{ s *MemoryStore }

func (r memOrders) Count(_ context.Context, orgID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, o := range r.s.orders {
		if o.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

func (r memOrders) Create(_ context.Context, o *entities.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailWrites != nil {
		return r.s.FailWrites
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	r.s.orders = append(r.s.orders, *o)
	return nil
}
