package entities

import "time"

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderCustom    Provider = "custom"
)

// Agent is a configured AI persona. Read-only to the response engine.
type Agent struct {
	ID               string     `json:"id"`
	OrganizationID   string     `json:"organization_id"`
	Name             string     `json:"name"`
	Provider         Provider   `json:"provider"`
	Model            string     `json:"model"`
	APIKey           string     `json:"-"`
	BaseURL          string     `json:"base_url,omitempty"` // custom providers only
	SystemPrompt     string     `json:"system_prompt"`
	KnowledgeBaseIDs []string   `json:"knowledge_base_ids"`
	Channels         []Platform `json:"channels"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (a Agent) ServesPlatform(p Platform) bool {
	for _, ch := range a.Channels {
		if ch == p {
			return true
		}
	}
	return false
}
