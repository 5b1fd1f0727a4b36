package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm_engine/internal/entities"
	"crm_engine/internal/infrastructure"
	"crm_engine/internal/usecases"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	ChannelWhatsApp       = "whatsapp"
	ChannelInstagram      = "instagram"
	ChannelMessenger      = "messenger"
	ChannelEvolution      = "evolution"
	ChannelTelegram       = "telegram"
	ChannelWhatsAppDevice = "whatsapp_device"
)

// unixTime accepts epoch seconds as a JSON number or string.
type unixTime int64

func (u *unixTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*u = unixTime(n)
	return nil
}

func (u unixTime) Time() time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(int64(u), 0)
}

// ---- WhatsApp Cloud API ----

type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From      string   `json:"from"`
					ID        string   `json:"id"`
					Timestamp unixTime `json:"timestamp"`
					Type      string   `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWhatsApp extracts inbound text messages. Status callbacks and
// non-text messages yield nothing.
func ParseWhatsApp(body []byte) ([]usecases.InboundMessage, error) {
	var p whatsAppPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}

	var out []usecases.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			names := make(map[string]string, len(v.Contacts))
			for _, c := range v.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range v.Messages {
				if m.Type != "text" || m.From == "" {
					continue
				}
				if digitsOnly(m.From) == digitsOnly(v.Metadata.DisplayPhoneNumber) {
					continue
				}
				out = append(out, usecases.InboundMessage{
					Channel:      ChannelWhatsApp,
					Platform:     entities.PlatformWhatsApp,
					LookupField:  entities.FieldWhatsAppPhoneNumberID,
					LookupValue:  v.Metadata.PhoneNumberID,
					ContactID:    m.From,
					ContactPhone: m.From,
					ContactName:  names[m.From],
					Text:         CleanText(m.Text.Body),
					ExternalID:   m.ID,
					Timestamp:    m.Timestamp.Time(),
				})
			}
		}
	}
	return out, nil
}

// ---- Messenger / Instagram ----

type metaPagePayload struct {
	Entry []struct {
		ID        string `json:"id"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Recipient struct {
				ID string `json:"id"`
			} `json:"recipient"`
			Timestamp int64 `json:"timestamp"`
			Message   *struct {
				Mid    string `json:"mid"`
				Text   string `json:"text"`
				IsEcho bool   `json:"is_echo"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseMetaPage extracts inbound text from Messenger or Instagram webhooks.
// Echoes of the page's own messages are dropped.
func ParseMetaPage(platform entities.Platform, body []byte) ([]usecases.InboundMessage, error) {
	var p metaPagePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}

	channel, field := ChannelMessenger, entities.FieldMessengerPageID
	if platform == entities.PlatformInstagram {
		channel, field = ChannelInstagram, entities.FieldInstagramPageID
	}

	var out []usecases.InboundMessage
	for _, entry := range p.Entry {
		for _, ev := range entry.Messaging {
			if ev.Message == nil || ev.Message.IsEcho || ev.Message.Text == "" {
				continue
			}
			pageID := entry.ID
			if pageID == "" {
				pageID = ev.Recipient.ID
			}
			if ev.Sender.ID == "" || ev.Sender.ID == pageID {
				continue
			}
			var ts time.Time
			if ev.Timestamp > 0 {
				ts = time.UnixMilli(ev.Timestamp)
			}
			out = append(out, usecases.InboundMessage{
				Channel:     channel,
				Platform:    platform,
				LookupField: field,
				LookupValue: pageID,
				ContactID:   ev.Sender.ID,
				Text:        CleanText(ev.Message.Text),
				ExternalID:  ev.Message.Mid,
				Timestamp:   ts,
			})
		}
	}
	return out, nil
}

// ---- Evolution API ----

type evolutionPayload struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

type evolutionMessage struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  *struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
	} `json:"message"`
	MessageTimestamp unixTime `json:"messageTimestamp"`
}

// ParseEvolution extracts inbound text from a messages.upsert event. Data may
// be a single message or a batch.
func ParseEvolution(body []byte) ([]usecases.InboundMessage, error) {
	var p evolutionPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	event := strings.ToLower(strings.ReplaceAll(p.Event, "_", "."))
	if event != "messages.upsert" || len(p.Data) == 0 {
		return nil, nil
	}

	var batch []evolutionMessage
	if data := bytes.TrimSpace(p.Data); len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, err
		}
	} else {
		var one evolutionMessage
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		batch = append(batch, one)
	}

	var out []usecases.InboundMessage
	for _, m := range batch {
		jid := m.Key.RemoteJid
		if m.Key.FromMe || m.Message == nil || strings.HasSuffix(jid, "@g.us") || strings.HasSuffix(jid, "@broadcast") {
			continue
		}
		text := m.Message.Conversation
		if text == "" && m.Message.ExtendedTextMessage != nil {
			text = m.Message.ExtendedTextMessage.Text
		}
		if text == "" {
			continue
		}
		phone := jid
		if i := strings.IndexByte(jid, '@'); i >= 0 {
			phone = jid[:i]
		}
		out = append(out, usecases.InboundMessage{
			Channel:      ChannelEvolution,
			Platform:     entities.PlatformWhatsApp,
			LookupField:  entities.FieldEvolutionInstance,
			LookupValue:  p.Instance,
			ContactID:    phone,
			ContactPhone: phone,
			ContactName:  m.PushName,
			Text:         CleanText(text),
			ExternalID:   m.Key.ID,
			Timestamp:    m.MessageTimestamp.Time(),
		})
	}
	return out, nil
}

// ---- Telegram ----

// ParseTelegram extracts an inbound private text message addressed to botID.
func ParseTelegram(botID string, body []byte) ([]usecases.InboundMessage, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, err
	}
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot || msg.Chat == nil || msg.Text == "" {
		return nil, nil
	}
	if !msg.Chat.IsPrivate() {
		return nil, nil
	}

	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if name == "" {
		name = msg.From.UserName
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	return []usecases.InboundMessage{{
		Channel:     ChannelTelegram,
		Platform:    entities.PlatformTelegram,
		LookupField: entities.FieldTelegramBotID,
		LookupValue: botID,
		ContactID:   chatID,
		ContactName: name,
		Text:        CleanText(msg.Text),
		ExternalID:  chatID + ":" + strconv.Itoa(msg.MessageID),
		Timestamp:   msg.Time(),
	}}, nil
}

// ---- WhatsApp linked device ----

// FromDeviceMessage normalizes a message received by an organization's linked device.
func FromDeviceMessage(orgID string, m infrastructure.DeviceMessage) usecases.InboundMessage {
	return usecases.InboundMessage{
		Channel:        ChannelWhatsAppDevice,
		Platform:       entities.PlatformWhatsApp,
		OrganizationID: orgID,
		ContactID:      m.Phone,
		ContactPhone:   m.Phone,
		ContactName:    m.Name,
		Text:           CleanText(m.Text),
		ExternalID:     m.ID,
		Timestamp:      m.Timestamp,
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
