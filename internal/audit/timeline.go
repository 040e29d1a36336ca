package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// TimelineFilters narrows the audit timeline of one company.
type TimelineFilters struct {
	shared.ListFilters
	ActorID  *uuid.UUID
	Entity   string
	EntityID string
	Action   string
}

// TimelineRow is one audit_logs entry with the actor resolved.
type TimelineRow struct {
	ID         int64          `json:"id"`
	At         time.Time      `json:"at"`
	ActorID    *uuid.UUID     `json:"actorId,omitempty"`
	ActorName  string         `json:"actorName,omitempty"`
	ActorEmail string         `json:"actorEmail,omitempty"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entityId"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Result is a page of the timeline.
type Result struct {
	Rows       []TimelineRow
	Pagination shared.Pagination
}
