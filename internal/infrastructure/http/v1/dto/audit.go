package dto

import (
	"encoding/json"
	"time"

	"costbook/internal/infrastructure/storage/postgres"
)

// AuditEntryResponse is one audit trail row, changes already decompressed.
type AuditEntryResponse struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// FromAuditEntry creates AuditEntryResponse from the storage entry.
func FromAuditEntry(e postgres.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID.String(),
		EntityType: e.EntityType,
		EntityID:   e.EntityID.String(),
		Action:     e.Action,
		Changes:    e.Changes,
		CreatedAt:  e.CreatedAt,
	}
}
