package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"crm_engine/internal/metrics"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the chat-completions wire format. It also serves
// OpenAI-compatible custom endpoints through baseURL.
type OpenAIProvider struct {
	name   string
	client *openai.Client
}

func NewOpenAIProvider(name, apiKey, baseURL string, httpClient *http.Client) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	return &OpenAIProvider{name: name, client: openai.NewClientWithConfig(config)}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openAIRequest(req))
	metrics.ProviderRequestDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(p.name, "error").Inc()
		return nil, p.wrapError(err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(p.name, "ok").Inc()

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.name, Status: http.StatusOK, Message: "response contained no choices"}
	}

	msg := resp.Choices[0].Message
	out := &Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: []byte(args)})
	}
	return out, nil
}

func openAIRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2*len(req.Rounds)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}

	for _, r := range req.Rounds {
		assistant := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: r.Text}
		for _, c := range r.Calls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ToolCall{
				ID:   c.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      c.Name,
					Arguments: string(c.Arguments),
				},
			})
		}
		messages = append(messages, assistant)
		for _, res := range r.Results {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    res.Content,
				Name:       res.Name,
				ToolCallID: res.CallID,
			})
		}
	}

	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	for _, spec := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return out
}

func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = statusMessage(apiErr.HTTPStatusCode)
		}
		return &ProviderError{Provider: p.name, Status: apiErr.HTTPStatusCode, Message: msg, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: p.name, Status: reqErr.HTTPStatusCode, Message: statusMessage(reqErr.HTTPStatusCode), Err: err}
	}
	return &ProviderError{Provider: p.name, Message: err.Error(), Err: err}
}
