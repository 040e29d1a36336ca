package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository persists products.
type Repository interface {
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Product, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*Product, error)
	SKUExists(ctx context.Context, companyID uuid.UUID, sku string, exclude uuid.UUID) (bool, error)
	CategoryActive(ctx context.Context, companyID, categoryID uuid.UUID) (bool, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error
}

type repository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

var sortColumns = map[string]string{
	"name":      "p.name",
	"sku":       "p.sku",
	"price":     "p.price",
	"stock":     "p.stock",
	"createdAt": "p.created_at",
	"updatedAt": "p.updated_at",
}

const selectProduct = `SELECT p.id, p.company_id, p.category_id, COALESCE(c.name, ''), p.sku, p.name, p.description, p.unit,
p.price, p.cost, p.stock, p.min_stock, p.is_active, p.created_at, p.updated_at
FROM products p LEFT JOIN categories c ON c.id = p.category_id `

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Product, int, error) {
	order, err := filter.OrderClause(sortColumns, "p.name")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("p.company_id = " + w.Arg(companyID))
	if filter.CategoryID != nil {
		w.And("p.category_id = " + w.Arg(*filter.CategoryID))
	}
	if filter.LowStock {
		w.And("p.min_stock > 0 AND p.stock < p.min_stock")
	}
	if filter.IsActive != nil {
		w.And("p.is_active = " + w.Arg(*filter.IsActive))
	}
	if filter.Search != "" {
		s := w.Arg("%" + filter.Search + "%")
		w.And(fmt.Sprintf("(p.name ILIKE %s OR p.sku ILIKE %s OR p.description ILIKE %s)", s, s, s))
	}
	if filter.StartDate != nil {
		w.And("p.created_at >= " + w.Arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		w.And("p.created_at <= " + w.Arg(*filter.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products p "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filter.Limit, filter.Offset())
	rows, err := r.db.Query(ctx, selectProduct+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProduct+"WHERE p.company_id = $1 AND p.id = $2", companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("product")
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) SKUExists(ctx context.Context, companyID uuid.UUID, sku string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE company_id = $1 AND upper(sku) = upper($2) AND id <> $3)`,
		companyID, sku, exclude).Scan(&exists)
	return exists, err
}

func (r *repository) CategoryActive(ctx context.Context, companyID, categoryID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE company_id = $1 AND id = $2 AND is_active)`,
		companyID, categoryID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, p *Product) error {
	_, err := r.db.Exec(ctx, `INSERT INTO products (id, company_id, category_id, sku, name, description, unit, price, cost, stock, min_stock, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		p.ID, p.CompanyID, p.CategoryID, p.SKU, p.Name, p.Description, p.Unit, p.Price, p.Cost, p.Stock, p.MinStock, p.IsActive, p.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("product sku %s already exists", p.SKU)
	}
	return err
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET category_id = $3, sku = $4, name = $5, description = $6, unit = $7,
price = $8, cost = $9, min_stock = $10, updated_at = $11
WHERE company_id = $1 AND id = $2`,
		p.CompanyID, p.ID, p.CategoryID, p.SKU, p.Name, p.Description, p.Unit, p.Price, p.Cost, p.MinStock, p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("product sku %s already exists", p.SKU)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product")
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET is_active = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product")
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.CompanyID, &p.CategoryID, &p.CategoryName, &p.SKU, &p.Name, &p.Description, &p.Unit,
		&p.Price, &p.Cost, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
