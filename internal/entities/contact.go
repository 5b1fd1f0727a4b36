package entities

import "time"

type Contact struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Company        string    `json:"company,omitempty"`
	Email          string    `json:"email,omitempty"`
	FunnelStage    string    `json:"funnel_stage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
