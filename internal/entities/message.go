package entities

import "time"

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type Source string

const (
	SourceHuman Source = "human"
	SourceAI    Source = "ai"
)

// Message is append-only; the engine never mutates or deletes one.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	OrganizationID string    `json:"organization_id"`
	Text           string    `json:"text"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Direction      Direction `json:"direction"`
	Source         Source    `json:"source"`
	ExternalID     string    `json:"external_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
