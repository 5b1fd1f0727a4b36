package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"crm_engine/internal/entities"
	logx "crm_engine/pkg/logger"

	"go.mau.fi/whatsmeow/types/events"
)

const deviceFilePrefix = "org_"

// WhatsAppManager manages one linked WhatsApp device per organization.
type WhatsAppManager struct {
	clients map[string]*WhatsAppClient
	mu      sync.RWMutex
	baseDir string

	// OnMessage receives every direct text message any device gets.
	OnMessage func(orgID string, msg DeviceMessage)
}

func NewWhatsAppManager(baseDir string) *WhatsAppManager {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logx.Warn().Err(err).Str("dir", baseDir).Msg("could not create devices directory")
	}
	return &WhatsAppManager{
		clients: make(map[string]*WhatsAppClient),
		baseDir: baseDir,
	}
}

func (m *WhatsAppManager) devicePath(orgID string) string {
	return filepath.Join(m.baseDir, deviceFilePrefix+orgID+".db")
}

// GetClient returns the organization's client, or nil.
func (m *WhatsAppManager) GetClient(orgID string) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[orgID]
}

func (m *WhatsAppManager) GetOrCreateClient(ctx context.Context, orgID string) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[orgID]; exists {
		return client, nil
	}

	client, err := NewWhatsAppClient(ctx, m.devicePath(orgID), orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp client for org %s: %w", orgID, err)
	}
	client.AddHandler(m.handlerFor(orgID))

	m.clients[orgID] = client
	return client, nil
}

func (m *WhatsAppManager) handlerFor(orgID string) func(interface{}) {
	return func(evt interface{}) {
		msg, ok := evt.(*events.Message)
		if !ok {
			return
		}
		parsed, ok := ParseDeviceMessage(msg)
		if !ok || m.OnMessage == nil {
			return
		}
		m.OnMessage(orgID, parsed)
	}
}

func (m *WhatsAppManager) ConnectClient(ctx context.Context, orgID string) (*WhatsAppClient, error) {
	client, err := m.GetOrCreateClient(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if client.Client.IsConnected() {
		return client, nil
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect WhatsApp for org %s: %w", orgID, err)
	}
	return client, nil
}

// RestoreSessions reconnects every device that has a session file on disk.
func (m *WhatsAppManager) RestoreSessions(ctx context.Context) int {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		logx.Warn().Err(err).Str("dir", m.baseDir).Msg("could not list device sessions")
		return 0
	}

	restored := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, deviceFilePrefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		orgID := strings.TrimSuffix(strings.TrimPrefix(name, deviceFilePrefix), ".db")
		client, err := m.GetOrCreateClient(ctx, orgID)
		if err != nil {
			logx.Warn().Err(err).Str("org_id", orgID).Msg("could not open device session")
			continue
		}
		if !client.IsLoggedIn() {
			continue
		}
		if err := client.Connect(ctx); err != nil {
			logx.Warn().Err(err).Str("org_id", orgID).Msg("could not reconnect device")
			continue
		}
		restored++
	}
	return restored
}

// LogoutClient unlinks the organization's device. Missing clients are not an error.
func (m *WhatsAppManager) LogoutClient(ctx context.Context, orgID string) error {
	m.mu.Lock()
	client, exists := m.clients[orgID]
	delete(m.clients, orgID)
	m.mu.Unlock()

	if !exists || !client.IsLoggedIn() {
		return nil
	}
	return client.Logout(ctx)
}

func (m *WhatsAppManager) SendText(ctx context.Context, org entities.Organization, to, text string) error {
	client := m.GetClient(org.ID)
	if client == nil || !client.IsConnected() {
		return ErrChannelNotConfigured
	}
	return client.SendMessage(ctx, to, text)
}

// DisconnectAll disconnects all clients (for graceful shutdown)
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
}
