package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/db"
)

// StatusChange is one entry of a document's status history.
type StatusChange struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"companyId"`
	Module     string    `json:"module"`
	RefID      uuid.UUID `json:"refId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ActorID    uuid.UUID `json:"actorId"`
	Note       string    `json:"note,omitempty"`
	At         time.Time `json:"at"`
}

// RecordStatusChange appends a history entry using conn, which may be a transaction.
func RecordStatusChange(ctx context.Context, conn db.DBTX, change StatusChange) error {
	if change.Module == "" {
		return errors.New("status history module required")
	}
	if change.RefID == uuid.Nil {
		return errors.New("status history ref id required")
	}
	if change.ToStatus == "" {
		return errors.New("status history target status required")
	}
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	var actor *uuid.UUID
	if change.ActorID != uuid.Nil {
		actor = &change.ActorID
	}
	_, err := conn.Exec(ctx, `INSERT INTO document_status_history (id, company_id, module, ref_id, from_status, to_status, actor_id, note, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		change.ID, change.CompanyID, change.Module, change.RefID, change.FromStatus, change.ToStatus, actor, change.Note, change.At)
	return err
}

// ListStatusChanges returns the history of a document, oldest first.
func ListStatusChanges(ctx context.Context, conn db.DBTX, companyID uuid.UUID, module string, ref uuid.UUID) ([]StatusChange, error) {
	rows, err := conn.Query(ctx, `SELECT id, company_id, module, ref_id, from_status, to_status, actor_id, note, at
FROM document_status_history WHERE company_id=$1 AND module=$2 AND ref_id=$3 ORDER BY at ASC`, companyID, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	changes := []StatusChange{}
	for rows.Next() {
		var c StatusChange
		var actor *uuid.UUID
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Module, &c.RefID, &c.FromStatus, &c.ToStatus, &actor, &c.Note, &c.At); err != nil {
			return nil, err
		}
		if actor != nil {
			c.ActorID = *actor
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
