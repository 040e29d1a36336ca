package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository persists orders and their tracking records.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Order, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*Order, error)
	GetForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Order, error)
	NextNumber(ctx context.Context, companyID uuid.UUID, prefix string, at time.Time) (string, error)
	CustomerActive(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error)
	ProductNames(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error)
	UserActive(ctx context.Context, companyID, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	SetStatus(ctx context.Context, o *Order) error
	RecordStatus(ctx context.Context, change shared.StatusChange) error
	History(ctx context.Context, companyID, id uuid.UUID) ([]shared.StatusChange, error)
	ListTimeEntries(ctx context.Context, companyID, orderID uuid.UUID) ([]TimeEntry, error)
	AddTimeEntry(ctx context.Context, e *TimeEntry) error
	DeleteTimeEntry(ctx context.Context, companyID, orderID, id uuid.UUID) error
	ListExpenses(ctx context.Context, companyID, orderID uuid.UUID) ([]Expense, error)
	AddExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, companyID, orderID, id uuid.UUID) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

var sortColumns = map[string]string{
	"number":    "o.number",
	"status":    "o.status",
	"total":     "o.total",
	"dueDate":   "o.due_date",
	"createdAt": "o.created_at",
	"updatedAt": "o.updated_at",
}

const selectOrder = `SELECT o.id, o.company_id, o.number, o.partner_id, p.name, o.quote_id, COALESCE(q.number, ''), o.status,
	o.due_date, o.notes, o.subtotal, COALESCE(o.discount_type, ''), o.discount, o.discount_value, o.total,
	o.created_by, o.started_at, o.completed_at, o.cancelled_at, o.created_at, o.updated_at
FROM orders o
JOIN partners p ON p.id = o.partner_id
LEFT JOIN quotes q ON q.id = o.quote_id `

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Order, int, error) {
	order, err := filter.OrderClause(sortColumns, "o.created_at")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("o.company_id = " + w.Arg(companyID))
	if filter.Status != "" {
		w.And("o.status = " + w.Arg(string(filter.Status)))
	}
	if filter.PartnerID != nil {
		w.And("o.partner_id = " + w.Arg(*filter.PartnerID))
	}
	if filter.QuoteID != nil {
		w.And("o.quote_id = " + w.Arg(*filter.QuoteID))
	}
	if filter.Search != "" {
		s := w.Arg("%" + filter.Search + "%")
		w.And(fmt.Sprintf("(o.number ILIKE %s OR p.name ILIKE %s OR o.notes ILIKE %s)", s, s, s))
	}
	if filter.StartDate != nil {
		w.And("o.created_at >= " + w.Arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		w.And("o.created_at <= " + w.Arg(*filter.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders o JOIN partners p ON p.id = o.partner_id "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filter.Limit, filter.Offset())
	rows, err := r.db.Query(ctx, selectOrder+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*Order, error) {
	return r.get(ctx, companyID, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Order, error) {
	return r.get(ctx, companyID, id, " FOR UPDATE OF o")
}

func (r *repository) get(ctx context.Context, companyID, id uuid.UUID, lock string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+"WHERE o.company_id = $1 AND o.id = $2"+lock, companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("order")
		}
		if db.IsSerializationFailure(err) {
			return nil, shared.Conflict("order was changed by another request, retry")
		}
		return nil, err
	}
	if o.Items, err = document.LoadItems(ctx, r.db, document.OrderItems, o.ID); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return o, nil
}

func (r *repository) NextNumber(ctx context.Context, companyID uuid.UUID, prefix string, at time.Time) (string, error) {
	return document.NextNumber(ctx, r.db, companyID, prefix, at)
}

func (r *repository) CustomerActive(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error) {
	return document.CustomerActive(ctx, r.db, companyID, partnerID)
}

func (r *repository) ProductNames(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return document.ProductNames(ctx, r.db, companyID, ids)
}

func (r *repository) UserActive(ctx context.Context, companyID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE company_id = $1 AND id = $2 AND is_active)`,
		companyID, userID).Scan(&ok)
	return ok, err
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	_, err := r.db.Exec(ctx, `INSERT INTO orders (id, company_id, number, partner_id, quote_id, status, due_date, notes,
	subtotal, discount_type, discount, discount_value, total, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15, $15)`,
		o.ID, o.CompanyID, o.Number, o.PartnerID, o.QuoteID, string(o.Status), o.DueDate, o.Notes,
		o.Subtotal, string(o.DiscountType), o.Discount, o.DiscountValue, o.Total, o.CreatedBy, o.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("order number %s already exists", o.Number)
		}
		return err
	}
	return document.ReplaceItems(ctx, r.db, document.OrderItems, o.ID, o.Items)
}

func (r *repository) Update(ctx context.Context, o *Order) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET partner_id = $3, due_date = $4, notes = $5, subtotal = $6,
	discount_type = NULLIF($7, ''), discount = $8, discount_value = $9, total = $10, updated_at = $11
WHERE company_id = $1 AND id = $2`,
		o.CompanyID, o.ID, o.PartnerID, o.DueDate, o.Notes, o.Subtotal,
		string(o.DiscountType), o.Discount, o.DiscountValue, o.Total, o.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order")
	}
	return document.ReplaceItems(ctx, r.db, document.OrderItems, o.ID, o.Items)
}

// Delete removes an order with its items and tracking records.
func (r *repository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	for _, table := range []string{"order_items", "time_entries", "order_expenses"} {
		if _, err := r.db.Exec(ctx, "DELETE FROM "+table+` WHERE order_id = $1 AND EXISTS (
	SELECT 1 FROM orders WHERE company_id = $2 AND id = $1)`, id, companyID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order")
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, o *Order) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $3, started_at = $4, completed_at = $5, cancelled_at = $6, updated_at = $7
WHERE company_id = $1 AND id = $2`,
		o.CompanyID, o.ID, string(o.Status), o.StartedAt, o.CompletedAt, o.CancelledAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order")
	}
	return nil
}

func (r *repository) RecordStatus(ctx context.Context, change shared.StatusChange) error {
	return shared.RecordStatusChange(ctx, r.db, change)
}

func (r *repository) History(ctx context.Context, companyID, id uuid.UUID) ([]shared.StatusChange, error) {
	return shared.ListStatusChanges(ctx, r.db, companyID, HistoryModule, id)
}

func (r *repository) ListTimeEntries(ctx context.Context, companyID, orderID uuid.UUID) ([]TimeEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT t.id, t.company_id, t.order_id, t.user_id, COALESCE(u.name, ''), t.description,
	t.hours, t.hourly_rate, t.worked_at, t.created_at
FROM time_entries t LEFT JOIN users u ON u.id = t.user_id
WHERE t.company_id = $1 AND t.order_id = $2 ORDER BY t.worked_at, t.created_at`, companyID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []TimeEntry{}
	for rows.Next() {
		var e TimeEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.OrderID, &e.UserID, &e.UserName, &e.Description,
			&e.Hours, &e.HourlyRate, &e.WorkedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Cost = LabourCost(e.Hours, e.HourlyRate)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) AddTimeEntry(ctx context.Context, e *TimeEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO time_entries (id, company_id, order_id, user_id, description, hours, hourly_rate, worked_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.CompanyID, e.OrderID, e.UserID, e.Description, e.Hours, e.HourlyRate, e.WorkedAt, e.CreatedAt)
	return err
}

func (r *repository) DeleteTimeEntry(ctx context.Context, companyID, orderID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM time_entries WHERE company_id = $1 AND order_id = $2 AND id = $3`, companyID, orderID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("time entry")
	}
	return nil
}

func (r *repository) ListExpenses(ctx context.Context, companyID, orderID uuid.UUID) ([]Expense, error) {
	rows, err := r.db.Query(ctx, `SELECT id, company_id, order_id, description, category, amount, incurred_at, created_by, created_at
FROM order_expenses WHERE company_id = $1 AND order_id = $2 ORDER BY incurred_at, created_at`, companyID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	expenses := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.OrderID, &e.Description, &e.Category, &e.Amount,
			&e.IncurredAt, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *repository) AddExpense(ctx context.Context, e *Expense) error {
	_, err := r.db.Exec(ctx, `INSERT INTO order_expenses (id, company_id, order_id, description, category, amount, incurred_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.CompanyID, e.OrderID, e.Description, e.Category, e.Amount, e.IncurredAt, e.CreatedBy, e.CreatedAt)
	return err
}

func (r *repository) DeleteExpense(ctx context.Context, companyID, orderID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM order_expenses WHERE company_id = $1 AND order_id = $2 AND id = $3`, companyID, orderID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("expense")
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	if err := row.Scan(&o.ID, &o.CompanyID, &o.Number, &o.PartnerID, &o.PartnerName, &o.QuoteID, &o.QuoteNumber, &status,
		&o.DueDate, &o.Notes, &o.Subtotal, &o.DiscountType, &o.Discount, &o.DiscountValue, &o.Total,
		&o.CreatedBy, &o.StartedAt, &o.CompletedAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = lifecycle.OrderStatus(status)
	o.Items = []document.Item{}
	return &o, nil
}
