package http

import (
	"net/http"

	logx "crm_engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// ConnectWhatsApp creates and connects the organization's linked device.
func (h *Handler) ConnectWhatsApp(c *gin.Context) {
	if h.deps.WhatsApp == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}

	client, err := h.deps.WhatsApp.ConnectClient(c.Request.Context(), c.GetString(ctxOrgID))
	if err != nil {
		logx.Error().Err(err).Str("org_id", c.GetString(ctxOrgID)).Msg("whatsapp connect failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect WhatsApp"})
		return
	}

	phone, name := client.GetUserInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":    "connecting",
		"connected": client.IsLoggedIn(),
		"phone":     phone,
		"name":      name,
	})
}

// GetWhatsAppQRCode returns the pairing QR code as a PNG.
func (h *Handler) GetWhatsAppQRCode(c *gin.Context) {
	if h.deps.WhatsApp == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp not configured")
		return
	}

	client, err := h.deps.WhatsApp.ConnectClient(c.Request.Context(), c.GetString(ctxOrgID))
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to connect")
		return
	}

	qrCodeString := client.GetQR()
	if qrCodeString == "" {
		if client.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(qrCodeString, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GetWhatsAppStatus reports the linked device state without connecting it.
func (h *Handler) GetWhatsAppStatus(c *gin.Context) {
	if h.deps.WhatsApp == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "initialized": false})
		return
	}

	client := h.deps.WhatsApp.GetClient(c.GetString(ctxOrgID))
	if client == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "initialized": false})
		return
	}

	phone, name := client.GetUserInfo()
	c.JSON(http.StatusOK, gin.H{
		"connected":   client.IsConnected(),
		"initialized": true,
		"phone":       phone,
		"name":        name,
		"hasQR":       client.GetQR() != "",
	})
}

// LogoutWhatsApp unlinks the organization's device.
func (h *Handler) LogoutWhatsApp(c *gin.Context) {
	if h.deps.WhatsApp == nil {
		c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
		return
	}

	if err := h.deps.WhatsApp.LogoutClient(c.Request.Context(), c.GetString(ctxOrgID)); err != nil {
		logx.Warn().Err(err).Str("org_id", c.GetString(ctxOrgID)).Msg("whatsapp logout")
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
