package entities

import "time"

type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
	PlatformMessenger Platform = "messenger"
	PlatformTelegram  Platform = "telegram"
)

// IntegrationField names the channel-specific identifier used to find the
// organization that owns an inbound webhook event.
type IntegrationField string

const (
	FieldWhatsAppPhoneNumberID IntegrationField = "whatsapp.phone_number_id"
	FieldInstagramPageID       IntegrationField = "instagram.page_id"
	FieldMessengerPageID       IntegrationField = "messenger.page_id"
	FieldEvolutionInstance     IntegrationField = "evolution.instance_name"
	FieldTelegramBotID         IntegrationField = "telegram.bot_id"
)

// Organization is the tenant boundary; every other entity belongs to one.
type Organization struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	InviteCode   string       `json:"invite_code"`
	Integrations Integrations `json:"integrations"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Integrations struct {
	WhatsApp  WhatsAppIntegration  `json:"whatsapp"`
	Instagram MetaPageIntegration  `json:"instagram"`
	Messenger MetaPageIntegration  `json:"messenger"`
	Evolution EvolutionIntegration `json:"evolution"`
	Telegram  TelegramIntegration  `json:"telegram"`
}

type WhatsAppIntegration struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
}

type MetaPageIntegration struct {
	PageID      string `json:"page_id"`
	AccessToken string `json:"access_token"`
}

type EvolutionIntegration struct {
	InstanceName string `json:"instance_name"`
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
}

type TelegramIntegration struct {
	BotID    string `json:"bot_id"`
	BotToken string `json:"bot_token"`
}

// Lookup returns the value of an integration field.
func (i Integrations) Lookup(field IntegrationField) string {
	switch field {
	case FieldWhatsAppPhoneNumberID:
		return i.WhatsApp.PhoneNumberID
	case FieldInstagramPageID:
		return i.Instagram.PageID
	case FieldMessengerPageID:
		return i.Messenger.PageID
	case FieldEvolutionInstance:
		return i.Evolution.InstanceName
	case FieldTelegramBotID:
		return i.Telegram.BotID
	}
	return ""
}
