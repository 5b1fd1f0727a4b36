package llm

import (
	"fmt"
	"net/http"

	"crm_engine/internal/config"
	"crm_engine/internal/entities"
)

// Factory selects the adapter for an agent once, from its provider setting.
type Factory struct {
	cfg        config.LLMConfig
	httpClient *http.Client
}

func NewFactory(cfg config.LLMConfig, httpClient *http.Client) *Factory {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Factory{cfg: cfg, httpClient: httpClient}
}

func (f *Factory) ForAgent(agent entities.Agent) (Provider, error) {
	if agent.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	switch agent.Provider {
	case entities.ProviderOpenAI:
		baseURL := f.cfg.OpenAIBaseURL
		if agent.BaseURL != "" {
			baseURL = agent.BaseURL
		}
		return NewOpenAIProvider(string(agent.Provider), agent.APIKey, baseURL, f.httpClient), nil
	case entities.ProviderCustom:
		if agent.BaseURL == "" {
			return nil, ErrMissingBaseURL
		}
		return NewOpenAIProvider(string(agent.Provider), agent.APIKey, agent.BaseURL, f.httpClient), nil
	case entities.ProviderAnthropic:
		baseURL := f.cfg.AnthropicBaseURL
		if agent.BaseURL != "" {
			baseURL = agent.BaseURL
		}
		return NewAnthropicProvider(agent.APIKey, baseURL, f.cfg.AnthropicVersion, f.httpClient), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, agent.Provider)
}

func (f *Factory) MaxTokens() int {
	return f.cfg.MaxTokens
}
