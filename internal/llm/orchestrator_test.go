package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	requests  []Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		// keep asking for tools forever
		return &Response{ToolCalls: []ToolCall{{ID: fmt.Sprintf("loop-%d", len(p.requests)), Name: "query_database", Arguments: json.RawMessage(`{}`)}}}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

type panicExecutor struct{}

func (panicExecutor) Execute(_ context.Context, call ToolCall) string {
	if call.Name == "create_order" {
		panic("nil order repository")
	}
	return "ok"
}

type echoExecutor struct {
	delays map[string]time.Duration
}

func (e echoExecutor) Execute(_ context.Context, call ToolCall) string {
	if d, ok := e.delays[call.ID]; ok {
		time.Sleep(d)
	}
	return "result for " + call.ID
}

func TestOrchestrator_FinalTextWithoutTools(t *testing.T) {
	p := &scriptedProvider{responses: []*Response{{Text: "Déjame revisar. Hola!\n\n\n\nBienvenido"}}}
	text, err := NewOrchestrator(0).Run(context.Background(), p, Request{Model: "m"}, echoExecutor{})

	require.NoError(t, err)
	assert.Equal(t, "Hola!\n\nBienvenido", text)
	assert.Len(t, p.requests, 1)
}

func TestOrchestrator_TerminatesAfterMaxRounds(t *testing.T) {
	p := &scriptedProvider{}
	text, err := NewOrchestrator(DefaultMaxRounds).Run(context.Background(), p, Request{}, echoExecutor{})

	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Len(t, p.requests, DefaultMaxRounds)
	assert.Len(t, p.requests[DefaultMaxRounds-1].Rounds, DefaultMaxRounds-1)
}

func TestOrchestrator_RoundResultsKeepCallOrder(t *testing.T) {
	calls := []ToolCall{
		{ID: "a", Name: "query_database", Arguments: json.RawMessage(`{}`)},
		{ID: "b", Name: "save_contact", Arguments: json.RawMessage(`{}`)},
		{ID: "c", Name: "create_order", Arguments: json.RawMessage(`{}`)},
	}
	p := &scriptedProvider{responses: []*Response{
		{Text: "checking", ToolCalls: calls},
		{Text: "Listo"},
	}}
	exec := echoExecutor{delays: map[string]time.Duration{"a": 30 * time.Millisecond, "b": 10 * time.Millisecond}}

	text, err := NewOrchestrator(0).Run(context.Background(), p, Request{}, exec)
	require.NoError(t, err)
	assert.Equal(t, "Listo", text)

	require.Len(t, p.requests, 2)
	require.Len(t, p.requests[1].Rounds, 1)
	round := p.requests[1].Rounds[0]
	assert.Equal(t, "checking", round.Text)
	assert.Equal(t, calls, round.Calls)
	assert.Equal(t, []ToolResult{
		{CallID: "a", Name: "query_database", Content: "result for a"},
		{CallID: "b", Name: "save_contact", Content: "result for b"},
		{CallID: "c", Name: "create_order", Content: "result for c"},
	}, round.Results)
	assert.Empty(t, p.requests[0].Rounds)
}

func TestOrchestrator_ProviderErrorSurfaces(t *testing.T) {
	perr := &ProviderError{Provider: "scripted", Status: 401, Message: "bad key"}
	p := &scriptedProvider{err: perr}

	text, err := NewOrchestrator(0).Run(context.Background(), p, Request{}, echoExecutor{})
	assert.Empty(t, text)
	var got *ProviderError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 401, got.Status)
	assert.Equal(t, "scripted provider: bad key", err.Error())
}

func TestOrchestrator_DoesNotMutateCallerRounds(t *testing.T) {
	prior := []Round{{Text: "earlier"}}
	p := &scriptedProvider{responses: []*Response{
		{ToolCalls: []ToolCall{{ID: "x", Name: "query_database"}}},
		{Text: "done"},
	}}
	_, err := NewOrchestrator(0).Run(context.Background(), p, Request{Rounds: prior[:1:1]}, echoExecutor{})
	require.NoError(t, err)
	assert.Len(t, prior, 1)
	assert.Len(t, p.requests[1].Rounds, 2)
}

func TestOrchestrator_ToolPanicBecomesResult(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{
		{ToolCalls: []ToolCall{
			{ID: "a", Name: "query_database", Arguments: json.RawMessage(`{}`)},
			{ID: "b", Name: "create_order", Arguments: json.RawMessage(`{}`)},
		}},
		{Text: "Lo siento, no pude crear el pedido."},
	}}

	text, err := NewOrchestrator(DefaultMaxRounds).Run(context.Background(), provider, Request{}, panicExecutor{})
	require.NoError(t, err)
	assert.Equal(t, "Lo siento, no pude crear el pedido.", text)

	require.Len(t, provider.requests, 2)
	results := provider.requests[1].Rounds[0].Results
	require.Len(t, results, 2)
	assert.Equal(t, "ok", results[0].Content)
	assert.Contains(t, results[1].Content, "create_order tool failed")
}
