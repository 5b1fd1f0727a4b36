package llm

import (
	"net/http"
	"testing"

	"crm_engine/internal/config"
	"crm_engine/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ForAgent(t *testing.T) {
	f := NewFactory(config.LLMConfig{
		OpenAIBaseURL:    "https://api.openai.com/v1",
		AnthropicBaseURL: "https://api.anthropic.com",
		AnthropicVersion: "2023-06-01",
	}, nil)

	tests := []struct {
		name     string
		agent    entities.Agent
		wantName string
		wantErr  error
	}{
		{"openai", entities.Agent{Provider: entities.ProviderOpenAI, APIKey: "k"}, "openai", nil},
		{"anthropic", entities.Agent{Provider: entities.ProviderAnthropic, APIKey: "k"}, "anthropic", nil},
		{"custom", entities.Agent{Provider: entities.ProviderCustom, APIKey: "k", BaseURL: "http://llm.local/v1"}, "custom", nil},
		{"custom without url", entities.Agent{Provider: entities.ProviderCustom, APIKey: "k"}, "", ErrMissingBaseURL},
		{"missing key", entities.Agent{Provider: entities.ProviderOpenAI}, "", ErrMissingAPIKey},
		{"unknown provider", entities.Agent{Provider: "gemini", APIKey: "k"}, "", ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.ForAgent(tt.agent)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestFactory_DefaultClientHasNoTimeout(t *testing.T) {
	f := NewFactory(config.LLMConfig{}, nil)
	assert.Same(t, http.DefaultClient, f.httpClient)
	assert.Zero(t, f.httpClient.Timeout)
}
