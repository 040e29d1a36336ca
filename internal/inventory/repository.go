package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockProduct(ctx context.Context, companyID, productID uuid.UUID) (ProductRef, error)
	RawBalance(ctx context.Context, companyID, productID uuid.UUID) (decimal.Decimal, error)
	InsertMovement(ctx context.Context, m Movement) error
	SetProductStock(ctx context.Context, companyID, productID uuid.UUID, stock decimal.Decimal) error
}

type txRepo struct {
	tx pgx.Tx
}

// signedQuantity mirrors Signed for SQL aggregates.
const signedQuantity = `CASE m.type WHEN 'IN' THEN m.quantity WHEN 'ADJUSTMENT' THEN m.quantity ELSE -m.quantity END`

var sortColumns = map[string]string{
	"createdAt": "l.created_at",
	"quantity":  "l.quantity",
	"type":      "l.type",
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ledgerCTE annotates every movement of the company with the raw signed sum
// of the earlier movements of the same product.
const ledgerCTE = `WITH ledger AS (
	SELECT m.id, m.company_id, m.product_id, m.type, m.quantity, m.reason, m.reference, m.user_id, m.created_at,
		COALESCE(SUM(` + signedQuantity + `) OVER (PARTITION BY m.product_id ORDER BY m.created_at, m.id
			ROWS BETWEEN UNBOUNDED PRECEDING AND 1 PRECEDING), 0) AS raw_before
	FROM stock_movements m
	WHERE m.company_id = $1
)
`

const selectLedger = `SELECT l.id, l.company_id, l.product_id, p.name, l.type, l.quantity, l.reason, l.reference, l.user_id, l.created_at, l.raw_before
FROM ledger l JOIN products p ON p.id = l.product_id `

// List returns a page of movements, newest first by default.
func (r *Repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]LedgerEntry, int, error) {
	order, err := filter.OrderClause(sortColumns, "l.created_at")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.Arg(companyID)
	if filter.ProductID != nil {
		w.And("l.product_id = " + w.Arg(*filter.ProductID))
	}
	if filter.Type != "" {
		w.And("l.type = " + w.Arg(string(filter.Type)))
	}
	if filter.Search != "" {
		s := w.Arg("%" + filter.Search + "%")
		w.And(fmt.Sprintf("(l.reason ILIKE %s OR l.reference ILIKE %s OR p.name ILIKE %s)", s, s, s))
	}
	if filter.StartDate != nil {
		w.And("l.created_at >= " + w.Arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		w.And("l.created_at <= " + w.Arg(*filter.EndDate))
	}

	var total int
	if err := r.pool.QueryRow(ctx, ledgerCTE+"SELECT COUNT(*) FROM ledger l JOIN products p ON p.id = l.product_id "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filter.Limit, filter.Offset())
	rows, err := r.pool.Query(ctx, ledgerCTE+selectLedger+w.SQL()+" ORDER BY "+order+", l.id"+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	entries := []LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Get returns one movement with its running balance.
func (r *Repository) Get(ctx context.Context, companyID, id uuid.UUID) (LedgerEntry, error) {
	e, err := scanLedgerEntry(r.pool.QueryRow(ctx, ledgerCTE+selectLedger+"WHERE l.id = $2", companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return LedgerEntry{}, shared.NotFound("stock movement")
		}
		return LedgerEntry{}, err
	}
	return e, nil
}

// SumBefore returns the raw signed sum of a product's movements created
// before at.
func (r *Repository) SumBefore(ctx context.Context, companyID, productID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(`+signedQuantity+`), 0) FROM stock_movements m
WHERE m.company_id = $1 AND m.product_id = $2 AND m.created_at < $3`, companyID, productID, at).Scan(&sum)
	return sum, err
}

// LowStock lists active products under their minimum stock.
func (r *Repository) LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]LowStockProduct, error) {
	var w db.Where
	w.And("p.is_active AND p.min_stock > 0 AND p.stock < p.min_stock")
	if companyID != nil {
		w.And("p.company_id = " + w.Arg(*companyID))
	}
	page, args := w.Page(limit, 0)
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.company_id, p.sku, p.name, p.stock, p.min_stock FROM products p `+
		w.SQL()+" ORDER BY (p.min_stock - p.stock) DESC"+page, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LowStockProduct{}
	for rows.Next() {
		var p LowStockProduct
		if err := rows.Scan(&p.ProductID, &p.CompanyID, &p.SKU, &p.Name, &p.Stock, &p.MinStock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *txRepo) LockProduct(ctx context.Context, companyID, productID uuid.UUID) (ProductRef, error) {
	var p ProductRef
	err := r.tx.QueryRow(ctx, `SELECT id, name, is_active, min_stock FROM products WHERE company_id = $1 AND id = $2 FOR UPDATE`,
		companyID, productID).Scan(&p.ID, &p.Name, &p.IsActive, &p.MinStock)
	if err != nil {
		if db.IsNoRows(err) {
			return ProductRef{}, shared.NotFound("product")
		}
		return ProductRef{}, err
	}
	return p, nil
}

func (r *txRepo) RawBalance(ctx context.Context, companyID, productID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(`+signedQuantity+`), 0) FROM stock_movements m
WHERE m.company_id = $1 AND m.product_id = $2`, companyID, productID).Scan(&sum)
	return sum, err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (id, company_id, product_id, type, quantity, reason, reference, user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.CompanyID, m.ProductID, m.Type, m.Quantity, m.Reason, m.Reference, m.UserID, m.CreatedAt)
	return err
}

func (r *txRepo) SetProductStock(ctx context.Context, companyID, productID uuid.UUID, stock decimal.Decimal) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, productID, stock)
	return err
}

func scanLedgerEntry(row pgx.Row) (LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.ProductID, &e.ProductName, &e.Type, &e.Quantity, &e.Reason, &e.Reference,
		&e.UserID, &e.CreatedAt, &e.RawBefore)
	return e, err
}
