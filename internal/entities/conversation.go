package entities

import "time"

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"

	DefaultFunnelStage = "lead"
)

type Conversation struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Platform       Platform  `json:"platform"`
	ContactID      string    `json:"contact_id"`    // external id on the channel
	ContactPhone   string    `json:"contact_phone"` // WhatsApp only
	ContactName    string    `json:"contact_name"`
	Status         string    `json:"status"`
	AIEnabled      bool      `json:"ai_enabled"`
	FunnelStage    string    `json:"funnel_stage"`
	LastMessage    string    `json:"last_message"`
	LastMessageAt  time.Time `json:"last_message_at"`
	UnreadCount    int       `json:"unread_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExternalRecipient is the channel address replies are delivered to.
func (c Conversation) ExternalRecipient() string {
	if c.Platform == PlatformWhatsApp && c.ContactPhone != "" {
		return c.ContactPhone
	}
	return c.ContactID
}
