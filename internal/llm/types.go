package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior chat message in provider-neutral form.
type Turn struct {
	Role Role
	Text string
}

// ToolSpec describes a callable tool; Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type ToolResult struct {
	CallID  string
	Name    string
	Content string
}

// Round records one completed tool-calling exchange: what the model asked for
// and what the tools answered. Adapters replay rounds in their own wire format.
type Round struct {
	Text    string
	Calls   []ToolCall
	Results []ToolResult
}

type Request struct {
	Model     string
	System    string
	History   []Turn
	Rounds    []Round
	Tools     []ToolSpec
	MaxTokens int
}

// Response is either final text (no ToolCalls) or pending tool calls.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Provider sends one round to a vendor API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ToolExecutor runs a single tool call. Failures are reported in the returned
// text, never as an error, so a bad call cannot abort the round.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) string
}

var (
	ErrMissingAPIKey       = errors.New("agent has no API key configured")
	ErrMissingBaseURL      = errors.New("custom provider requires a base URL")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// ProviderError is a failed or malformed provider response.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// statusMessage is the fallback when the provider body carries no error text.
func statusMessage(status int) string {
	return fmt.Sprintf("Error %d", status)
}
