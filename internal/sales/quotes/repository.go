package quotes

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

// Repository persists quotes.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Quote, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*Quote, error)
	GetForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Quote, error)
	NextNumber(ctx context.Context, companyID uuid.UUID, prefix string, at time.Time) (string, error)
	CustomerActive(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error)
	ProductNames(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error)
	Create(ctx context.Context, q *Quote) error
	Update(ctx context.Context, q *Quote) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	SetStatus(ctx context.Context, companyID, id uuid.UUID, status lifecycle.QuoteStatus, orderID *uuid.UUID) error
	RecordStatus(ctx context.Context, change shared.StatusChange) error
	History(ctx context.Context, companyID, id uuid.UUID) ([]shared.StatusChange, error)
	CreateOrder(ctx context.Context, o NewOrder) error
	ClaimIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) error
	ExpireSent(ctx context.Context, now time.Time) ([]ExpiredQuote, error)
	CompanyProfile(ctx context.Context, companyID uuid.UUID) (CompanyProfile, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
	idem *shared.IdempotencyStore
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, idem: shared.NewIdempotencyStore(pool)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, idem: r.idem.WithDB(tx)})
	})
}

var sortColumns = map[string]string{
	"number":     "q.number",
	"status":     "q.status",
	"total":      "q.total",
	"validUntil": "q.valid_until",
	"createdAt":  "q.created_at",
	"updatedAt":  "q.updated_at",
}

const selectQuote = `SELECT q.id, q.company_id, q.number, q.partner_id, p.name, q.status, q.valid_until, q.notes,
	q.subtotal, COALESCE(q.discount_type, ''), q.discount, q.discount_value, q.total,
	q.order_id, COALESCE(o.number, ''), q.created_by, q.created_at, q.updated_at
FROM quotes q
JOIN partners p ON p.id = q.partner_id
LEFT JOIN orders o ON o.id = q.order_id `

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Quote, int, error) {
	order, err := filter.OrderClause(sortColumns, "q.created_at")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("q.company_id = " + w.Arg(companyID))
	if filter.Status != "" {
		w.And("q.status = " + w.Arg(string(filter.Status)))
	}
	if filter.PartnerID != nil {
		w.And("q.partner_id = " + w.Arg(*filter.PartnerID))
	}
	if filter.Search != "" {
		s := w.Arg("%" + filter.Search + "%")
		w.And(fmt.Sprintf("(q.number ILIKE %s OR p.name ILIKE %s OR q.notes ILIKE %s)", s, s, s))
	}
	if filter.StartDate != nil {
		w.And("q.created_at >= " + w.Arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		w.And("q.created_at <= " + w.Arg(*filter.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes q JOIN partners p ON p.id = q.partner_id "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filter.Limit, filter.Offset())
	rows, err := r.db.Query(ctx, selectQuote+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	quotes := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*Quote, error) {
	return r.get(ctx, companyID, id, "")
}

func (r *repository) GetForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Quote, error) {
	return r.get(ctx, companyID, id, " FOR UPDATE OF q")
}

func (r *repository) get(ctx context.Context, companyID, id uuid.UUID, lock string) (*Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, selectQuote+"WHERE q.company_id = $1 AND q.id = $2"+lock, companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("quote")
		}
		if db.IsSerializationFailure(err) {
			return nil, shared.Conflict("quote was changed by another request, retry")
		}
		return nil, err
	}
	if q.Items, err = document.LoadItems(ctx, r.db, document.QuoteItems, q.ID); err != nil {
		return nil, fmt.Errorf("load quote items: %w", err)
	}
	return q, nil
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

func (r *repository) Create(ctx context.Context, q *Quote) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quotes (id, company_id, number, partner_id, status, valid_until, notes,
	subtotal, discount_type, discount, discount_value, total, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $14)`,
		q.ID, q.CompanyID, q.Number, q.PartnerID, string(q.Status), q.ValidUntil, q.Notes,
		q.Subtotal, string(q.DiscountType), q.Discount, q.DiscountValue, q.Total, q.CreatedBy, q.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("quote number %s already exists", q.Number)
		}
		return err
	}
	return document.ReplaceItems(ctx, r.db, document.QuoteItems, q.ID, q.Items)
}

func (r *repository) Update(ctx context.Context, q *Quote) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET partner_id = $3, valid_until = $4, notes = $5, subtotal = $6,
	discount_type = NULLIF($7, ''), discount = $8, discount_value = $9, total = $10, updated_at = $11
WHERE company_id = $1 AND id = $2`,
		q.CompanyID, q.ID, q.PartnerID, q.ValidUntil, q.Notes, q.Subtotal,
		string(q.DiscountType), q.Discount, q.DiscountValue, q.Total, q.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("quote")
	}
	return document.ReplaceItems(ctx, r.db, document.QuoteItems, q.ID, q.Items)
}

func (r *repository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1 AND EXISTS (
	SELECT 1 FROM quotes WHERE company_id = $2 AND id = $1)`, id, companyID); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("quote")
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, companyID, id uuid.UUID, status lifecycle.QuoteStatus, orderID *uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET status = $3, order_id = COALESCE($4, order_id), updated_at = NOW()
WHERE company_id = $1 AND id = $2`, companyID, id, string(status), orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("quote")
	}
	return nil
}

func (r *repository) RecordStatus(ctx context.Context, change shared.StatusChange) error {
	return shared.RecordStatusChange(ctx, r.db, change)
}

func (r *repository) History(ctx context.Context, companyID, id uuid.UUID) ([]shared.StatusChange, error) {
	return shared.ListStatusChanges(ctx, r.db, companyID, HistoryModule, id)
}

func (r *repository) CreateOrder(ctx context.Context, o NewOrder) error {
	_, err := r.db.Exec(ctx, `INSERT INTO orders (id, company_id, number, partner_id, quote_id, status, notes,
	subtotal, discount_type, discount, discount_value, total, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, $14, $14)`,
		o.ID, o.CompanyID, o.Number, o.PartnerID, o.QuoteID, string(lifecycle.OrderPending), o.Notes,
		o.Subtotal, string(o.DiscountType), o.Discount, o.DiscountValue, o.Total, o.CreatedBy, o.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("quote already has an order")
		}
		return fmt.Errorf("insert order: %w", err)
	}
	if err := document.ReplaceItems(ctx, r.db, document.OrderItems, o.ID, o.Items); err != nil {
		return err
	}
	return shared.RecordStatusChange(ctx, r.db, shared.StatusChange{
		CompanyID: o.CompanyID,
		Module:    "orders",
		RefID:     o.ID,
		ToStatus:  string(lifecycle.OrderPending),
		ActorID:   derefUUID(o.CreatedBy),
		Note:      "created from quote",
		At:        o.CreatedAt,
	})
}

func (r *repository) ClaimIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) error {
	return r.idem.CheckAndInsert(ctx, companyID, key, HistoryModule+".convert")
}

// ExpireSent moves every SENT quote of every company whose validity ended
// before now to EXPIRED. Run it inside WithTx together with the history
// inserts.
func (r *repository) ExpireSent(ctx context.Context, now time.Time) ([]ExpiredQuote, error) {
	rows, err := r.db.Query(ctx, `UPDATE quotes SET status = 'EXPIRED', updated_at = $1
WHERE status = 'SENT' AND valid_until IS NOT NULL AND valid_until < $1
RETURNING id, company_id, number`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	expired := []ExpiredQuote{}
	for rows.Next() {
		var e ExpiredQuote
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Number); err != nil {
			return nil, err
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}

func (r *repository) CompanyProfile(ctx context.Context, companyID uuid.UUID) (CompanyProfile, error) {
	var c CompanyProfile
	err := r.db.QueryRow(ctx, `SELECT name, COALESCE(trade_name, ''), COALESCE(document, ''), COALESCE(email, ''),
	COALESCE(phone, ''), COALESCE(address, '') FROM companies WHERE id = $1`, companyID).
		Scan(&c.Name, &c.TradeName, &c.Document, &c.Email, &c.Phone, &c.Address)
	if err != nil {
		if db.IsNoRows(err) {
			return c, shared.NotFound("company")
		}
		return c, err
	}
	return c, nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var status string
	if err := row.Scan(&q.ID, &q.CompanyID, &q.Number, &q.PartnerID, &q.PartnerName, &status, &q.ValidUntil, &q.Notes,
		&q.Subtotal, &q.DiscountType, &q.Discount, &q.DiscountValue, &q.Total,
		&q.OrderID, &q.OrderNumber, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.Status = lifecycle.QuoteStatus(status)
	q.Items = []document.Item{}
	return &q, nil
}

func derefUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
