package entities

import "time"

// Row is one free-form knowledge-base record. Columns are advisory only.
type Row map[string]any

type KnowledgeBase struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Columns        []string  `json:"columns"`
	RowCount       int       `json:"row_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}
