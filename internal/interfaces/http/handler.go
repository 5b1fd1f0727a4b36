package http

import (
	"context"
	"net/http"

	"crm_engine/internal/config"
	"crm_engine/internal/entities"
	"crm_engine/internal/errx"
	"crm_engine/internal/infrastructure"
	"crm_engine/internal/metrics"
	"crm_engine/internal/repository"
	"crm_engine/internal/usecases"
	logx "crm_engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type Ingestor interface {
	Ingest(ctx context.Context, in usecases.InboundMessage) (usecases.IngestOutcome, error)
}

type ConsoleRunner interface {
	Chat(ctx context.Context, orgID, agentID string, req usecases.ConsoleRequest) (*usecases.ConsoleReply, error)
}

type KnowledgeImporter interface {
	ReplaceRows(ctx context.Context, orgID, id string, columns []string, rows []entities.Row) (*entities.KnowledgeBase, error)
}

// Dependencies collects what the HTTP layer serves. Nil channel managers
// disable their routes' functionality.
type Dependencies struct {
	Webhook       config.WebhookConfig
	PublicURL     string
	RateLimit     rate.Limit
	RateBurst     int
	Ingestion     Ingestor
	Console       ConsoleRunner
	Knowledge     KnowledgeImporter
	Organizations repository.OrganizationRepository
	WhatsApp      *infrastructure.WhatsAppManager
	Telegram      *infrastructure.TelegramBotManager
}

type Handler struct {
	deps Dependencies
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps}
}

func SetupRoutes(r *gin.Engine, deps Dependencies, middleware *Middleware) {
	h := NewHandler(deps)
	telegramHandler := NewTelegramHandler(deps.Telegram, deps.Organizations, deps.Ingestion, deps.PublicURL)

	r.HandleMethodNotAllowed = true
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Channel webhooks
	hooks := r.Group("/webhook")
	hooks.Use(middleware.RateLimitPerKey(deps.RateLimit, deps.RateBurst, ByClientIP))
	{
		for _, channel := range []string{ChannelWhatsApp, ChannelInstagram, ChannelMessenger, ChannelEvolution} {
			hooks.GET("/"+channel, h.VerifyWebhook(channel))
			hooks.POST("/"+channel, h.ReceiveWebhook(channel))
		}
		hooks.POST("/telegram/:botID", telegramHandler.ReceiveUpdate)
	}

	// Operator API
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerKey(deps.RateLimit, deps.RateBurst, ByOrganization))
	{
		api.POST("/console/agents/:id/chat", h.ConsoleChat)
		api.PUT("/knowledge-bases/:id/rows", h.ReplaceKnowledgeRows)

		api.POST("/whatsapp/connect", h.ConnectWhatsApp)
		api.GET("/whatsapp/qr", h.GetWhatsAppQRCode)
		api.GET("/whatsapp/status", h.GetWhatsAppStatus)
		api.POST("/whatsapp/logout", h.LogoutWhatsApp)

		telegramHandler.RegisterRoutes(api)
	}
}

// respondError writes the safe message and status carried by err.
func respondError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": errx.MessageOf(err)})
}

// ConsoleChat runs an agent against the operator's transcript.
func (h *Handler) ConsoleChat(c *gin.Context) {
	agentID := c.Param("id")
	if !ValidID(agentID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent id"})
		return
	}

	var req usecases.ConsoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	for i := range req.Messages {
		req.Messages[i].Text = SanitizeString(req.Messages[i].Text)
	}

	reply, err := h.deps.Console.Chat(c.Request.Context(), c.GetString(ctxOrgID), agentID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

type replaceRowsRequest struct {
	Columns []string       `json:"columns"`
	Rows    []entities.Row `json:"rows" binding:"required"`
}

// ReplaceKnowledgeRows re-imports every row of a knowledge base.
func (h *Handler) ReplaceKnowledgeRows(c *gin.Context) {
	id := c.Param("id")
	if !ValidID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid knowledge base id"})
		return
	}

	var req replaceRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.Rows) > MaxImportRows {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many rows"})
		return
	}

	kb, err := h.deps.Knowledge.ReplaceRows(c.Request.Context(), c.GetString(ctxOrgID), id, req.Columns, req.Rows)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, kb)
}
