package http

import (
	"net/http"

	"crm_engine/internal/entities"
	"crm_engine/internal/usecases"
	logx "crm_engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

// VerifyWebhook answers the hub.challenge subscription handshake.
func (h *Handler) VerifyWebhook(channel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode != "subscribe" || token == "" || token != h.deps.Webhook.TokenFor(channel) {
			logx.Warn().Str("channel", channel).Str("mode", mode).Msg("webhook verification failed")
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
		c.String(http.StatusOK, challenge)
	}
}

func parserFor(channel string) func([]byte) ([]usecases.InboundMessage, error) {
	switch channel {
	case ChannelWhatsApp:
		return ParseWhatsApp
	case ChannelInstagram:
		return func(b []byte) ([]usecases.InboundMessage, error) { return ParseMetaPage(entities.PlatformInstagram, b) }
	case ChannelMessenger:
		return func(b []byte) ([]usecases.InboundMessage, error) { return ParseMetaPage(entities.PlatformMessenger, b) }
	case ChannelEvolution:
		return ParseEvolution
	}
	return nil
}

// ReceiveWebhook ingests a channel event. Anything that is not a server-side
// failure is acknowledged with 200 so the provider does not redeliver.
func (h *Handler) ReceiveWebhook(channel string) gin.HandlerFunc {
	parse := parserFor(channel)
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
			return
		}
		msgs, err := parse(body)
		if err != nil {
			logx.Warn().Err(err).Str("channel", channel).Msg("malformed webhook payload")
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		ingestAll(c, h.deps.Ingestion, channel, msgs)
	}
}

// ingestAll stores every message of one delivery; only a storage failure is
// reported back (500) so the provider retries.
func ingestAll(c *gin.Context, ingestion Ingestor, channel string, msgs []usecases.InboundMessage) {
	stored := 0
	for _, m := range msgs {
		outcome, err := ingestion.Ingest(c.Request.Context(), m)
		if err != nil {
			logx.Error().Err(err).Str("channel", channel).Str("external_id", m.ExternalID).Msg("ingestion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed"})
			return
		}
		if outcome == usecases.OutcomeStored {
			stored++
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "stored": stored})
}
