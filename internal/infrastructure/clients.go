package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crm_engine/internal/entities"

	"github.com/go-resty/resty/v2"
)

var ErrChannelNotConfigured = errors.New("channel integration not configured")

func newRestClient(httpClient *http.Client) *resty.Client {
	if httpClient != nil {
		return resty.NewWithClient(httpClient)
	}
	return resty.New().SetTimeout(30 * time.Second)
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func graphFailure(api string, resp *resty.Response, body *graphError) error {
	if body.Error.Message != "" {
		return fmt.Errorf("%s: status %d: %s", api, resp.StatusCode(), body.Error.Message)
	}
	return fmt.Errorf("%s: status %d", api, resp.StatusCode())
}

// WhatsAppBusinessClient sends through the WhatsApp Cloud API using the
// organization's phone number id and access token.
type WhatsAppBusinessClient struct {
	client *resty.Client
}

func NewWhatsAppBusinessClient(graphURL string, httpClient *http.Client) *WhatsAppBusinessClient {
	return &WhatsAppBusinessClient{client: newRestClient(httpClient).SetBaseURL(strings.TrimRight(graphURL, "/"))}
}

func (w *WhatsAppBusinessClient) SendText(ctx context.Context, org entities.Organization, to, text string) error {
	wa := org.Integrations.WhatsApp
	if wa.PhoneNumberID == "" || wa.AccessToken == "" {
		return ErrChannelNotConfigured
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": text,
		},
	}

	var errBody graphError
	resp, err := w.client.R().
		SetContext(ctx).
		SetAuthToken(wa.AccessToken).
		SetBody(payload).
		SetError(&errBody).
		Post("/" + wa.PhoneNumberID + "/messages")
	if err != nil {
		return fmt.Errorf("whatsapp cloud api: %w", err)
	}
	if resp.IsError() {
		return graphFailure("whatsapp cloud api", resp, &errBody)
	}
	return nil
}

// MetaPageClient sends through the Messenger Send API, which also serves
// Instagram messaging for pages linked to an Instagram account.
type MetaPageClient struct {
	client   *resty.Client
	platform entities.Platform
}

func NewMetaPageClient(graphURL string, platform entities.Platform, httpClient *http.Client) *MetaPageClient {
	return &MetaPageClient{
		client:   newRestClient(httpClient).SetBaseURL(strings.TrimRight(graphURL, "/")),
		platform: platform,
	}
}

func (m *MetaPageClient) SendText(ctx context.Context, org entities.Organization, to, text string) error {
	page := org.Integrations.Messenger
	if m.platform == entities.PlatformInstagram {
		page = org.Integrations.Instagram
	}
	if page.PageID == "" || page.AccessToken == "" {
		return ErrChannelNotConfigured
	}
	payload := map[string]any{
		"recipient":      map[string]string{"id": to},
		"messaging_type": "RESPONSE",
		"message":        map[string]string{"text": text},
	}

	var errBody graphError
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParam("access_token", page.AccessToken).
		SetBody(payload).
		SetError(&errBody).
		Post("/" + page.PageID + "/messages")
	if err != nil {
		return fmt.Errorf("%s send api: %w", m.platform, err)
	}
	if resp.IsError() {
		return graphFailure(string(m.platform)+" send api", resp, &errBody)
	}
	return nil
}

// EvolutionClient sends WhatsApp text through an Evolution API instance.
type EvolutionClient struct {
	client         *resty.Client
	defaultBaseURL string
}

func NewEvolutionClient(defaultBaseURL string, httpClient *http.Client) *EvolutionClient {
	return &EvolutionClient{client: newRestClient(httpClient), defaultBaseURL: defaultBaseURL}
}

func (e *EvolutionClient) SendText(ctx context.Context, org entities.Organization, to, text string) error {
	evo := org.Integrations.Evolution
	baseURL := evo.BaseURL
	if baseURL == "" {
		baseURL = e.defaultBaseURL
	}
	if evo.InstanceName == "" || baseURL == "" {
		return ErrChannelNotConfigured
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("apikey", evo.APIKey).
		SetBody(map[string]string{"number": to, "text": text}).
		Post(strings.TrimRight(baseURL, "/") + "/message/sendText/" + evo.InstanceName)
	if err != nil {
		return fmt.Errorf("evolution api: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("evolution api: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}
