package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	logx "crm_engine/pkg/logger"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient is one organization's linked WhatsApp device.
type WhatsAppClient struct {
	Client         *whatsmeow.Client
	OrganizationID string

	qrCode string
	qrLock sync.RWMutex
}

// DeviceMessage is an inbound direct text message received by a linked device.
type DeviceMessage struct {
	ID        string
	Phone     string
	Name      string
	Text      string
	Timestamp time.Time
}

func whatsmeowLogger(module, orgID string) waLog.Logger {
	return waLog.Zerolog(logx.Logger().With().Str("component", "whatsmeow").Str("module", module).Str("org_id", orgID).Logger())
}

func NewWhatsAppClient(ctx context.Context, dbPath, orgID string) (*WhatsAppClient, error) {
	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", whatsmeowLogger("Database", orgID))
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &WhatsAppClient{
		Client:         whatsmeow.NewClient(deviceStore, whatsmeowLogger("Client", orgID)),
		OrganizationID: orgID,
	}, nil
}

// Connect starts the session. A device that was never paired publishes QR
// codes, readable through GetQR, until the phone scans one.
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		return w.Client.Connect()
	}

	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return err
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			w.qrLock.Lock()
			w.qrCode = evt.Code
			w.qrLock.Unlock()
			continue
		}
		if evt.Event == "success" {
			w.qrLock.Lock()
			w.qrCode = ""
			w.qrLock.Unlock()
		}
		logx.Info().Str("org_id", w.OrganizationID).Str("event", evt.Event).Msg("whatsapp pairing event")
	}
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

// GetUserInfo returns the linked phone number and push name.
func (w *WhatsAppClient) GetUserInfo() (string, string) {
	if w.Client.Store.ID == nil {
		return "", ""
	}
	return w.Client.Store.ID.User, w.Client.Store.PushName
}

func (w *WhatsAppClient) Logout(ctx context.Context) error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	err := w.Client.Logout(ctx)
	w.Client.Disconnect()
	return err
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

func (w *WhatsAppClient) SendMessage(ctx context.Context, to string, content string) error {
	jid, err := types.ParseJID(strings.TrimPrefix(to, "+") + "@" + types.DefaultUserServer)
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &content,
	})
	return err
}

// ParseDeviceMessage extracts a direct text message. Own messages, group chats
// and non-text payloads are rejected.
func ParseDeviceMessage(evt *events.Message) (DeviceMessage, bool) {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe || evt.Info.IsGroup {
		return DeviceMessage{}, false
	}

	var text string
	if evt.Message.Conversation != nil {
		text = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil {
		text = *evt.Message.ExtendedTextMessage.Text
	}
	if strings.TrimSpace(text) == "" {
		return DeviceMessage{}, false
	}

	return DeviceMessage{
		ID:        string(evt.Info.ID),
		Phone:     evt.Info.Sender.User,
		Name:      evt.Info.PushName,
		Text:      text,
		Timestamp: evt.Info.Timestamp,
	}, true
}
