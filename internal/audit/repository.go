package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/db"
)

// Repository reads audit_logs.
type Repository interface {
	Timeline(ctx context.Context, companyID uuid.UUID, filters TimelineFilters, order string) ([]TimelineRow, int, error)
	All(ctx context.Context, companyID uuid.UUID, filters TimelineFilters, limit int) ([]TimelineRow, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

const selectTimeline = `SELECT a.id, a.occurred_at, a.actor_id, COALESCE(u.name, ''), COALESCE(u.email, ''),
	a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id `

func where(companyID uuid.UUID, f TimelineFilters) *db.Where {
	w := &db.Where{}
	w.And("a.company_id = " + w.Arg(companyID))
	if f.ActorID != nil {
		w.And("a.actor_id = " + w.Arg(*f.ActorID))
	}
	if f.Entity != "" {
		w.And("a.entity = " + w.Arg(f.Entity))
	}
	if f.EntityID != "" {
		w.And("a.entity_id = " + w.Arg(f.EntityID))
	}
	if f.Action != "" {
		w.And("a.action = " + w.Arg(f.Action))
	}
	if f.StartDate != nil {
		w.And("a.occurred_at >= " + w.Arg(*f.StartDate))
	}
	if f.EndDate != nil {
		w.And("a.occurred_at <= " + w.Arg(*f.EndDate))
	}
	if f.Search != "" {
		p := w.Arg("%" + strings.ToLower(f.Search) + "%")
		w.And("(LOWER(a.entity_id) LIKE " + p + " OR LOWER(COALESCE(u.name, '')) LIKE " + p + ")")
	}
	return w
}

func (r *repository) Timeline(ctx context.Context, companyID uuid.UUID, f TimelineFilters, order string) ([]TimelineRow, int, error) {
	w := where(companyID, f)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(f.Limit, f.Offset())
	rows, err := r.query(ctx, selectTimeline+w.SQL()+" ORDER BY "+order+", a.id DESC"+page, args...)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) All(ctx context.Context, companyID uuid.UUID, f TimelineFilters, limit int) ([]TimelineRow, error) {
	w := where(companyID, f)
	page, args := w.Page(limit, 0)
	return r.query(ctx, selectTimeline+w.SQL()+" ORDER BY a.occurred_at DESC, a.id DESC"+page, args...)
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]TimelineRow, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TimelineRow{}
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.ActorName, &row.ActorEmail,
			&row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
