package usecases

import (
	"context"
	"errors"
	"fmt"

	"crm_engine/internal/entities"
	"crm_engine/internal/interfaces"
	"crm_engine/internal/metrics"
)

var ErrNoDeliveryChannel = errors.New("no delivery channel configured")

// DeliveryChannels holds one sender per outbound API. Nil entries are unavailable.
type DeliveryChannels struct {
	WhatsAppCloud  interfaces.Messenger
	Evolution      interfaces.Messenger
	WhatsAppDevice interfaces.Messenger
	Instagram      interfaces.Messenger
	Messenger      interfaces.Messenger
	Telegram       interfaces.Messenger
}

// Delivery sends persisted replies back over the conversation's channel.
type Delivery struct {
	ch DeliveryChannels
}

func NewDelivery(ch DeliveryChannels) *Delivery {
	return &Delivery{ch: ch}
}

// MessengerFor picks the sender for a platform from the organization's
// integrations. WhatsApp prefers the Cloud API, then Evolution, then a linked device.
func (d *Delivery) MessengerFor(org entities.Organization, platform entities.Platform) (interfaces.Messenger, error) {
	var m interfaces.Messenger
	switch platform {
	case entities.PlatformWhatsApp:
		wa := org.Integrations.WhatsApp
		switch {
		case wa.PhoneNumberID != "" && wa.AccessToken != "" && d.ch.WhatsAppCloud != nil:
			m = d.ch.WhatsAppCloud
		case org.Integrations.Evolution.InstanceName != "" && d.ch.Evolution != nil:
			m = d.ch.Evolution
		default:
			m = d.ch.WhatsAppDevice
		}
	case entities.PlatformInstagram:
		m = d.ch.Instagram
	case entities.PlatformMessenger:
		m = d.ch.Messenger
	case entities.PlatformTelegram:
		m = d.ch.Telegram
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoDeliveryChannel, platform)
	}
	return m, nil
}

func (d *Delivery) Deliver(ctx context.Context, org entities.Organization, conv entities.Conversation, text string) error {
	m, err := d.MessengerFor(org, conv.Platform)
	if err != nil {
		metrics.DeliveryTotal.WithLabelValues(string(conv.Platform), "unconfigured").Inc()
		return err
	}
	if err := m.SendText(ctx, org, conv.ExternalRecipient(), text); err != nil {
		metrics.DeliveryTotal.WithLabelValues(string(conv.Platform), "error").Inc()
		return err
	}
	metrics.DeliveryTotal.WithLabelValues(string(conv.Platform), "ok").Inc()
	return nil
}
