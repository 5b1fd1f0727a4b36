package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crm_engine/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

func captureServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Path = r.URL.Path
		got.Query = r.URL.RawQuery
		got.Header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestWhatsAppBusinessClient_SendText(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"messages":[{"id":"wamid.1"}]}`)
	client := NewWhatsAppBusinessClient(srv.URL+"/v18.0/", srv.Client())
	org := entities.Organization{Integrations: entities.Integrations{
		WhatsApp: entities.WhatsAppIntegration{PhoneNumberID: "PNID", AccessToken: "tok"},
	}}

	require.NoError(t, client.SendText(context.Background(), org, "5215512345678", "Hola"))
	assert.Equal(t, "/v18.0/PNID/messages", got.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "whatsapp", got.Body["messaging_product"])
	assert.Equal(t, "5215512345678", got.Body["to"])
	assert.Equal(t, map[string]any{"body": "Hola"}, got.Body["text"])
}

func TestWhatsAppBusinessClient_Errors(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid parameter","code":100}}`)
	client := NewWhatsAppBusinessClient(srv.URL, srv.Client())

	err := client.SendText(context.Background(), entities.Organization{}, "1", "x")
	assert.ErrorIs(t, err, ErrChannelNotConfigured)

	org := entities.Organization{Integrations: entities.Integrations{
		WhatsApp: entities.WhatsAppIntegration{PhoneNumberID: "PNID", AccessToken: "tok"},
	}}
	err = client.SendText(context.Background(), org, "1", "x")
	require.Error(t, err)
	assert.Equal(t, "whatsapp cloud api: status 400: Invalid parameter", err.Error())
}

func TestMetaPageClient_SendText(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK, `{"recipient_id":"PSID","message_id":"m_1"}`)
	client := NewMetaPageClient(srv.URL, entities.PlatformInstagram, srv.Client())
	org := entities.Organization{Integrations: entities.Integrations{
		Instagram: entities.MetaPageIntegration{PageID: "IG1", AccessToken: "igtok"},
		Messenger: entities.MetaPageIntegration{PageID: "FB1", AccessToken: "fbtok"},
	}}

	require.NoError(t, client.SendText(context.Background(), org, "PSID", "Hola"))
	assert.Equal(t, "/IG1/messages", got.Path)
	assert.Equal(t, "access_token=igtok", got.Query)
	assert.Equal(t, map[string]any{"id": "PSID"}, got.Body["recipient"])
	assert.Equal(t, map[string]any{"text": "Hola"}, got.Body["message"])
}

func TestEvolutionClient_SendText(t *testing.T) {
	srv, got := captureServer(t, http.StatusCreated, `{"key":{"id":"1"}}`)
	client := NewEvolutionClient("", srv.Client())
	org := entities.Organization{Integrations: entities.Integrations{
		Evolution: entities.EvolutionIntegration{InstanceName: "tienda", APIKey: "evo-key", BaseURL: srv.URL},
	}}

	require.NoError(t, client.SendText(context.Background(), org, "5215512345678", "Hola"))
	assert.Equal(t, "/message/sendText/tienda", got.Path)
	assert.Equal(t, "evo-key", got.Header.Get("apikey"))
	assert.Equal(t, "5215512345678", got.Body["number"])
	assert.Equal(t, "Hola", got.Body["text"])

	err := NewEvolutionClient("", srv.Client()).SendText(context.Background(), entities.Organization{}, "1", "x")
	assert.ErrorIs(t, err, ErrChannelNotConfigured)
}
