package model

import (
	"time"
)

// EventType represents the type of assistant event.
type EventType string

const (
	EventTypeTurn           EventType = "turn"
	EventTypeCatalogChanged EventType = "catalog_changed"
	EventTypeError          EventType = "error"
)

// ChatEvent is published after every completed chat turn.
type ChatEvent struct {
	ID            string    `json:"id"`
	Sequence      uint64    `json:"sequence,omitempty"`
	TenantID      string    `json:"tenant_id"`
	SessionID     string    `json:"session_id"`
	Type          EventType `json:"type"`
	Utterance     string    `json:"utterance"`
	Intent        Intent    `json:"intent"`
	Confidence    float64   `json:"confidence"`
	Method        Method    `json:"method,omitempty"`
	ProductsFound int       `json:"products_found"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// CatalogEvent notifies that a tenant's catalog was replaced.
type CatalogEvent struct {
	TenantID  string    `json:"tenant_id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
