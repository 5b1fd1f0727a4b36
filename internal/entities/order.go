package entities

import (
	"fmt"
	"time"
)

const OrderStatusNew = "nuevo"

type OrderItem struct {
	Product   string  `json:"product"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func (i OrderItem) Subtotal() float64 {
	return i.Quantity * i.UnitPrice
}

type Order struct {
	ID             string      `json:"id"`
	OrganizationID string      `json:"organization_id"`
	ConversationID string      `json:"conversation_id,omitempty"`
	OrderNumber    string      `json:"order_number"`
	CustomerName   string      `json:"customer_name,omitempty"`
	CustomerPhone  string      `json:"customer_phone,omitempty"`
	Items          []OrderItem `json:"items"`
	Total          float64     `json:"total"`
	Notes          string      `json:"notes,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderNumber formats the human-readable sequence number, e.g. PED-00008.
func OrderNumber(seq int) string {
	return fmt.Sprintf("PED-%05d", seq)
}
