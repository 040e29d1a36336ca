package categories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository persists categories.
type Repository interface {
	List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]Category, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*Category, error)
	NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
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
	"name":      "c.name",
	"createdAt": "c.created_at",
	"updatedAt": "c.updated_at",
}

const selectCategory = `SELECT c.id, c.company_id, c.name, c.description, c.is_active, c.created_at, c.updated_at,
(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id AND p.is_active)
FROM categories c `

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]Category, int, error) {
	order, err := filters.OrderClause(sortColumns, "c.name")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("c.company_id = " + w.Arg(companyID))
	if filters.IsActive != nil {
		w.And("c.is_active = " + w.Arg(*filters.IsActive))
	}
	if filters.Search != "" {
		p := w.Arg("%" + filters.Search + "%")
		w.And(fmt.Sprintf("(c.name ILIKE %s OR c.description ILIKE %s)", p, p))
	}
	if filters.StartDate != nil {
		w.And("c.created_at >= " + w.Arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		w.And("c.created_at <= " + w.Arg(*filters.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM categories c "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, selectCategory+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		categories = append(categories, *c)
	}
	return categories, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, selectCategory+"WHERE c.company_id = $1 AND c.id = $2", companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("category")
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE company_id = $1 AND lower(name) = lower($2) AND id <> $3)`,
		companyID, name, exclude).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, c *Category) error {
	_, err := r.db.Exec(ctx, `INSERT INTO categories (id, company_id, name, description, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`, c.ID, c.CompanyID, c.Name, c.Description, c.IsActive, c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("category %q already exists", c.Name)
	}
	return err
}

func (r *repository) Update(ctx context.Context, c *Category) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET name = $3, description = $4, updated_at = $5 WHERE company_id = $1 AND id = $2`,
		c.CompanyID, c.ID, c.Name, c.Description, c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("category %q already exists", c.Name)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("category")
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET is_active = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("category")
	}
	return nil
}

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt, &c.Products); err != nil {
		return nil, err
	}
	return &c, nil
}
