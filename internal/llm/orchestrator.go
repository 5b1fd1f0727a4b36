package llm

import (
	"context"

	logx "crm_engine/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxRounds caps provider requests per run.
const DefaultMaxRounds = 5

// Orchestrator drives the bounded tool-calling loop. Rounds are sequential;
// tool calls inside one round run concurrently.
type Orchestrator struct {
	maxRounds int
}

func NewOrchestrator(maxRounds int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Orchestrator{maxRounds: maxRounds}
}

// Run returns the sanitized final text. An empty string with a nil error means
// the round limit was reached without a final answer. Provider failures are
// returned as *ProviderError.
func (o *Orchestrator) Run(ctx context.Context, provider Provider, req Request, tools ToolExecutor) (string, error) {
	req.Rounds = append([]Round(nil), req.Rounds...)

	for round := 1; round <= o.maxRounds; round++ {
		resp, err := provider.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if !resp.HasToolCalls() {
			return Sanitize(resp.Text), nil
		}

		logx.Debug().Str("provider", provider.Name()).Int("round", round).Int("tool_calls", len(resp.ToolCalls)).Msg("executing tool calls")
		req.Rounds = append(req.Rounds, Round{
			Text:    resp.Text,
			Calls:   resp.ToolCalls,
			Results: executeAll(ctx, tools, resp.ToolCalls),
		})
	}

	logx.Warn().Str("provider", provider.Name()).Int("max_rounds", o.maxRounds).Msg("tool loop exhausted without a final answer")
	return "", nil
}

// executeAll runs every call of a round concurrently, keeping results in call order.
func executeAll(ctx context.Context, tools ToolExecutor, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = ToolResult{CallID: call.ID, Name: call.Name, Content: executeOne(gctx, tools, call)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// executeOne turns a panicking tool into an error result for the model.
func executeOne(ctx context.Context, tools ToolExecutor, call ToolCall) (content string) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Interface("panic", r).Str("tool", call.Name).Msg("tool execution panicked")
			content = "Error: the " + call.Name + " tool failed unexpectedly."
		}
	}()
	return tools.Execute(ctx, call)
}
