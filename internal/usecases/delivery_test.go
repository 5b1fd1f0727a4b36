package usecases

import (
	"context"
	"testing"

	"crm_engine/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelivery_MessengerFor(t *testing.T) {
	cloud, evo, device := &recordingMessenger{}, &recordingMessenger{}, &recordingMessenger{}
	ig, fb, tg := &recordingMessenger{}, &recordingMessenger{}, &recordingMessenger{}
	d := NewDelivery(DeliveryChannels{
		WhatsAppCloud:  cloud,
		Evolution:      evo,
		WhatsAppDevice: device,
		Instagram:      ig,
		Messenger:      fb,
		Telegram:       tg,
	})

	cloudOrg := entities.Organization{Integrations: entities.Integrations{
		WhatsApp:  entities.WhatsAppIntegration{PhoneNumberID: "pn", AccessToken: "tok"},
		Evolution: entities.EvolutionIntegration{InstanceName: "inst"},
	}}
	evoOrg := entities.Organization{Integrations: entities.Integrations{
		WhatsApp:  entities.WhatsAppIntegration{PhoneNumberID: "pn"},
		Evolution: entities.EvolutionIntegration{InstanceName: "inst"},
	}}

	tests := []struct {
		name     string
		org      entities.Organization
		platform entities.Platform
		want     *recordingMessenger
	}{
		{"whatsapp cloud first", cloudOrg, entities.PlatformWhatsApp, cloud},
		{"evolution without cloud token", evoOrg, entities.PlatformWhatsApp, evo},
		{"linked device last", entities.Organization{}, entities.PlatformWhatsApp, device},
		{"instagram", entities.Organization{}, entities.PlatformInstagram, ig},
		{"messenger", entities.Organization{}, entities.PlatformMessenger, fb},
		{"telegram", entities.Organization{}, entities.PlatformTelegram, tg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := d.MessengerFor(tt.org, tt.platform)
			require.NoError(t, err)
			assert.Same(t, tt.want, m)
		})
	}
}

func TestDelivery_Unconfigured(t *testing.T) {
	d := NewDelivery(DeliveryChannels{})

	_, err := d.MessengerFor(entities.Organization{}, entities.PlatformWhatsApp)
	assert.ErrorIs(t, err, ErrNoDeliveryChannel)

	err = d.Deliver(context.Background(), entities.Organization{}, entities.Conversation{Platform: entities.PlatformInstagram}, "hola")
	assert.ErrorIs(t, err, ErrNoDeliveryChannel)
}

func TestDelivery_UsesExternalRecipient(t *testing.T) {
	ig, wa := &recordingMessenger{}, &recordingMessenger{}
	d := NewDelivery(DeliveryChannels{Instagram: ig, WhatsAppDevice: wa})
	org := entities.Organization{ID: "org-1"}
	ctx := context.Background()

	require.NoError(t, d.Deliver(ctx, org, entities.Conversation{Platform: entities.PlatformInstagram, ContactID: "igsid-7"}, "hola"))
	require.NoError(t, d.Deliver(ctx, org, entities.Conversation{Platform: entities.PlatformWhatsApp, ContactID: "x", ContactPhone: "5215550001"}, "hola"))

	assert.Equal(t, []sentText{{OrgID: "org-1", To: "igsid-7", Text: "hola"}}, ig.sent)
	assert.Equal(t, []sentText{{OrgID: "org-1", To: "5215550001", Text: "hola"}}, wa.sent)
}
