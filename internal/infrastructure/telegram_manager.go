package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"crm_engine/internal/entities"
	logx "crm_engine/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramBotManager keeps one bot client per organization bot token. Updates
// arrive through webhooks, so bots here only send.
type TelegramBotManager struct {
	bots        map[string]*tgbotapi.BotAPI
	mu          sync.RWMutex
	apiEndpoint string
	httpClient  *http.Client
}

func NewTelegramBotManager(httpClient *http.Client) *TelegramBotManager {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TelegramBotManager{
		bots:        make(map[string]*tgbotapi.BotAPI),
		apiEndpoint: tgbotapi.APIEndpoint,
		httpClient:  httpClient,
	}
}

// Bot returns the cached client for the organization's token, creating it on first use.
func (m *TelegramBotManager) Bot(org entities.Organization) (*tgbotapi.BotAPI, error) {
	token := org.Integrations.Telegram.BotToken
	if token == "" {
		return nil, ErrChannelNotConfigured
	}

	m.mu.RLock()
	bot, ok := m.bots[token]
	m.mu.RUnlock()
	if ok {
		return bot, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if bot, ok := m.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, m.apiEndpoint, m.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	m.bots[token] = bot
	logx.Info().Str("org_id", org.ID).Str("bot", bot.Self.UserName).Msg("telegram bot ready")
	return bot, nil
}

func (m *TelegramBotManager) SendText(_ context.Context, org entities.Organization, to, text string) error {
	bot, err := m.Bot(org)
	if err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", to, err)
	}
	_, err = bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// RegisterWebhook points the organization's bot at
// <publicBase>/webhook/telegram/<bot id> and returns the bot's identity.
func (m *TelegramBotManager) RegisterWebhook(org entities.Organization, publicBase string) (tgbotapi.User, error) {
	bot, err := m.Bot(org)
	if err != nil {
		return tgbotapi.User{}, err
	}
	url := strings.TrimRight(publicBase, "/") + "/webhook/telegram/" + strconv.FormatInt(bot.Self.ID, 10)
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return tgbotapi.User{}, fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return tgbotapi.User{}, fmt.Errorf("set webhook: %w", err)
	}
	logx.Info().Str("org_id", org.ID).Str("url", url).Msg("telegram webhook registered")
	return bot.Self, nil
}

// Forget drops a cached bot, e.g. after its token was rotated.
func (m *TelegramBotManager) Forget(org entities.Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bots, org.Integrations.Telegram.BotToken)
}
