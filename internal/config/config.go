package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds every runtime setting, sourced from environment variables
// (loaded from .env for local runs).
type AppConfig struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"0.0.0.0:8080"`
	// PublicURL is where channels reach this server, used for Telegram webhooks.
	PublicURL string `envconfig:"PUBLIC_URL"`

	// Infrastructure. Empty URLs switch to in-process implementations.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Redis       RedisConfig

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	Webhook  WebhookConfig
	LLM      LLMConfig
	Channels ChannelConfig

	ConsoleCacheSize int     `envconfig:"CONSOLE_CACHE_SIZE" default:"128"`
	RateLimitRPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst   int     `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

type RedisConfig struct {
	URL          string `envconfig:"REDIS_URL"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
}

type WebhookConfig struct {
	VerifyToken          string        `envconfig:"WEBHOOK_VERIFY_TOKEN"`
	WhatsAppVerifyToken  string        `envconfig:"WHATSAPP_VERIFY_TOKEN"`
	InstagramVerifyToken string        `envconfig:"INSTAGRAM_VERIFY_TOKEN"`
	MessengerVerifyToken string        `envconfig:"MESSENGER_VERIFY_TOKEN"`
	EvolutionVerifyToken string        `envconfig:"EVOLUTION_VERIFY_TOKEN"`
	DedupTTL             time.Duration `envconfig:"DEDUP_TTL" default:"24h"`
	DedupMemorySize      int           `envconfig:"DEDUP_MEMORY_SIZE" default:"10000"`
}

// TokenFor returns the channel-specific verify token, falling back to the shared one.
// An empty result refuses every handshake for that channel.
func (w WebhookConfig) TokenFor(channel string) string {
	var specific string
	switch channel {
	case "whatsapp":
		specific = w.WhatsAppVerifyToken
	case "instagram":
		specific = w.InstagramVerifyToken
	case "messenger":
		specific = w.MessengerVerifyToken
	case "evolution":
		specific = w.EvolutionVerifyToken
	}
	if specific != "" {
		return specific
	}
	return w.VerifyToken
}

type LLMConfig struct {
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	AnthropicBaseURL string `envconfig:"ANTHROPIC_BASE_URL" default:"https://api.anthropic.com"`
	AnthropicVersion string `envconfig:"ANTHROPIC_VERSION" default:"2023-06-01"`
	MaxTokens        int    `envconfig:"LLM_MAX_TOKENS" default:"1024"`
}

type ChannelConfig struct {
	GraphURL          string `envconfig:"META_GRAPH_URL" default:"https://graph.facebook.com/v18.0"`
	EvolutionBaseURL  string `envconfig:"EVOLUTION_BASE_URL"`
	WhatsAppDeviceDir string `envconfig:"WHATSAPP_DEVICE_DIR" default:"devices"`
}

// LoadDotEnv loads .env files into the process environment.
func LoadDotEnv(files ...string) error {
	return godotenv.Load(files...)
}

// Load processes the environment into an AppConfig.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	return &cfg, nil
}

func (c *AppConfig) Environment() Environment {
	return ParseEnvironment(c.Env)
}
