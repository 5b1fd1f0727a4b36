package interfaces

import (
	"context"

	"crm_engine/internal/entities"
)

// Messenger delivers a text reply to a contact on one channel, using the
// organization's own integration credentials.
type Messenger interface {
	SendText(ctx context.Context, org entities.Organization, to, text string) error
}

// Deduper records idempotency keys of inbound events.
type Deduper interface {
	// FirstSeen reports whether key is new, marking it seen for the TTL.
	FirstSeen(ctx context.Context, key string) (bool, error)
	// Forget releases a key whose event could not be stored, so a redelivery is accepted.
	Forget(ctx context.Context, key string) error
}
