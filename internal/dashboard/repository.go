package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/platform/db"
)

// Repository runs the tenant aggregates behind the dashboard.
type Repository interface {
	QuotesByStatus(ctx context.Context, companyID uuid.UUID) (map[string]int, error)
	OrdersByStatus(ctx context.Context, companyID uuid.UUID) (map[string]int, error)
	OrderTotals(ctx context.Context, companyID uuid.UUID, now, monthStart time.Time) (OrderTotals, error)
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) QuotesByStatus(ctx context.Context, companyID uuid.UUID) (map[string]int, error) {
	return r.countBy(ctx, `SELECT status, COUNT(*) FROM quotes WHERE company_id = $1 GROUP BY status`, companyID)
}

func (r *repository) OrdersByStatus(ctx context.Context, companyID uuid.UUID) (map[string]int, error) {
	return r.countBy(ctx, `SELECT status, COUNT(*) FROM orders WHERE company_id = $1 GROUP BY status`, companyID)
}

func (r *repository) countBy(ctx context.Context, query string, companyID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *repository) OrderTotals(ctx context.Context, companyID uuid.UUID, now, monthStart time.Time) (OrderTotals, error) {
	var t OrderTotals
	err := r.db.QueryRow(ctx, `SELECT
	COALESCE(SUM(total) FILTER (WHERE status IN ('PENDING', 'IN_PROGRESS', 'PAUSED')), 0),
	COUNT(*) FILTER (WHERE status IN ('PENDING', 'IN_PROGRESS', 'PAUSED') AND due_date IS NOT NULL AND due_date < $2),
	COALESCE(SUM(total) FILTER (WHERE status = 'COMPLETED' AND completed_at >= $3), 0)
FROM orders WHERE company_id = $1`, companyID, now, monthStart).Scan(&t.OpenValue, &t.Overdue, &t.CompletedThisMonth)
	if err != nil {
		return OrderTotals{}, err
	}
	return t, nil
}

// OrderTotals are the money aggregates of the order book.
type OrderTotals struct {
	OpenValue          decimal.Decimal `json:"openValue"`
	Overdue            int             `json:"overdue"`
	CompletedThisMonth decimal.Decimal `json:"completedThisMonth"`
}
