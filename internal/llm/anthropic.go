package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"crm_engine/internal/metrics"

	"github.com/go-resty/resty/v2"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicProvider speaks the Messages API: top-level system field, tool_use
// blocks from the model, tool_result blocks sent back in a user message.
type AnthropicProvider struct {
	client *resty.Client
}

func NewAnthropicProvider(apiKey, baseURL, version string, httpClient *http.Client) *AnthropicProvider {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}
	client.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", version).
		SetHeader("Content-Type", "application/json")
	return &AnthropicProvider{client: client}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	var (
		result  anthropicResponse
		errBody anthropicErrorBody
	)

	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(anthropicPayload(req)).
		SetResult(&result).
		SetError(&errBody).
		Post("/v1/messages")
	metrics.ProviderRequestDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
		return nil, &ProviderError{Provider: p.Name(), Message: err.Error(), Err: err}
	}
	if resp.IsError() {
		metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), "error").Inc()
		msg := errBody.Error.Message
		if msg == "" {
			msg = statusMessage(resp.StatusCode())
		}
		return nil, &ProviderError{Provider: p.Name(), Status: resp.StatusCode(), Message: msg}
	}
	metrics.ProviderRequestsTotal.WithLabelValues(p.Name(), "ok").Inc()

	out := &Response{}
	var texts []string
	for _, block := range result.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				texts = append(texts, block.Text)
			}
		case "tool_use":
			input := block.Input
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: input})
		}
	}
	out.Text = strings.Join(texts, "\n")
	return out, nil
}

func anthropicPayload(req Request) anthropicRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	out := anthropicRequest{
		Model:     req.Model,
		System:    req.System,
		MaxTokens: maxTokens,
	}

	// The API requires alternating roles starting with user, so consecutive
	// turns of one role are merged and leading assistant turns dropped.
	for _, t := range req.History {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		role := "user"
		if t.Role == RoleAssistant {
			role = "assistant"
		}
		if len(out.Messages) == 0 && role == "assistant" {
			continue
		}
		out.Messages = appendBlocks(out.Messages, role, anthropicBlock{Type: "text", Text: t.Text})
	}

	for _, r := range req.Rounds {
		var blocks []anthropicBlock
		if r.Text != "" {
			blocks = append(blocks, anthropicBlock{Type: "text", Text: r.Text})
		}
		for _, c := range r.Calls {
			input := c.Arguments
			if len(input) == 0 || !json.Valid(input) {
				input = json.RawMessage("{}")
			}
			blocks = append(blocks, anthropicBlock{Type: "tool_use", ID: c.ID, Name: c.Name, Input: input})
		}
		out.Messages = appendBlocks(out.Messages, "assistant", blocks...)

		results := make([]anthropicBlock, 0, len(r.Results))
		for _, res := range r.Results {
			results = append(results, anthropicBlock{Type: "tool_result", ToolUseID: res.CallID, Content: res.Content})
		}
		out.Messages = appendBlocks(out.Messages, "user", results...)
	}

	for _, spec := range req.Tools {
		out.Tools = append(out.Tools, anthropicTool{Name: spec.Name, Description: spec.Description, InputSchema: spec.Parameters})
	}
	return out
}

func appendBlocks(msgs []anthropicMessage, role string, blocks ...anthropicBlock) []anthropicMessage {
	if len(blocks) == 0 {
		return msgs
	}
	if n := len(msgs); n > 0 && msgs[n-1].Role == role {
		msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
		return msgs
	}
	return append(msgs, anthropicMessage{Role: role, Content: blocks})
}
