package usecases

import (
	"context"
	"encoding/json"
	"sync"

	"crm_engine/internal/entities"
	"crm_engine/internal/llm"
)

type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	requests  []llm.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &llm.Response{ToolCalls: []llm.ToolCall{{ID: "again", Name: "query_database", Arguments: json.RawMessage(`{}`)}}}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type fakeFactory struct {
	provider llm.Provider
	err      error
}

func (f fakeFactory) ForAgent(entities.Agent) (llm.Provider, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

func (f fakeFactory) MaxTokens() int { return 256 }

type mapDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *mapDeduper) FirstSeen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func (d *mapDeduper) Forget(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

type sentText struct {
	OrgID string
	To    string
	Text  string
}

type recordingMessenger struct {
	mu   sync.Mutex
	sent []sentText
	err  error
}

func (m *recordingMessenger) SendText(_ context.Context, org entities.Organization, to, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentText{OrgID: org.ID, To: to, Text: text})
	return nil
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}
