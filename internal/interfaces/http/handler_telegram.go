package http

import (
	"errors"
	"net/http"
	"strconv"

	"crm_engine/internal/infrastructure"
	"crm_engine/internal/repository"
	logx "crm_engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TelegramHandler receives bot updates and manages webhook registration.
type TelegramHandler struct {
	tgManager *infrastructure.TelegramBotManager
	orgs      repository.OrganizationRepository
	ingestion Ingestor
	publicURL string
}

func NewTelegramHandler(tgManager *infrastructure.TelegramBotManager, orgs repository.OrganizationRepository, ingestion Ingestor, publicURL string) *TelegramHandler {
	return &TelegramHandler{
		tgManager: tgManager,
		orgs:      orgs,
		ingestion: ingestion,
		publicURL: publicURL,
	}
}

// RegisterRoutes registers Telegram management routes
func (h *TelegramHandler) RegisterRoutes(api *gin.RouterGroup) {
	tg := api.Group("/telegram")
	{
		tg.POST("/webhook", h.RegisterWebhook)
	}
}

// ReceiveUpdate ingests an update delivered to /webhook/telegram/:botID.
func (h *TelegramHandler) ReceiveUpdate(c *gin.Context) {
	botID := c.Param("botID")
	if _, err := strconv.ParseInt(botID, 10, 64); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}
	msgs, err := ParseTelegram(botID, body)
	if err != nil {
		logx.Warn().Err(err).Str("bot_id", botID).Msg("malformed telegram update")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ingestAll(c, h.ingestion, ChannelTelegram, msgs)
}

// RegisterWebhook points the organization's bot at this server.
func (h *TelegramHandler) RegisterWebhook(c *gin.Context) {
	if h.tgManager == nil || h.publicURL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Telegram not configured"})
		return
	}

	org, err := h.orgs.GetByID(c.Request.Context(), c.GetString(ctxOrgID))
	if err != nil {
		respondError(c, err)
		return
	}

	self, err := h.tgManager.RegisterWebhook(*org, h.publicURL)
	if errors.Is(err, infrastructure.ErrChannelNotConfigured) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No bot token configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to register webhook: " + err.Error()})
		return
	}

	botID := strconv.FormatInt(self.ID, 10)
	if org.Integrations.Telegram.BotID != botID {
		logx.Warn().Str("org_id", org.ID).Str("bot_id", botID).Msg("telegram bot id differs from the stored integration")
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "registered",
		"bot_id":   botID,
		"bot_name": "@" + self.UserName,
	})
}
