package companies

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository defines data access for companies.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, scope *uuid.UUID, filters shared.ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id uuid.UUID) (*Company, error)
	DocumentExists(ctx context.Context, document string, exclude uuid.UUID) (bool, error)
	EmailInUse(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, company Company) error
	Update(ctx context.Context, company Company) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountActiveUsers(ctx context.Context, id uuid.UUID) (int, error)
	CountOrders(ctx context.Context, id uuid.UUID) (int, error)
	CreateAdmin(ctx context.Context, companyID uuid.UUID, admin Admin) error
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
	"name":      "name",
	"document":  "document",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

const companyColumns = `id, name, trade_name, document, email, phone, address, is_active, created_at, updated_at`

// List returns companies; a non-nil scope restricts the result to one company.
func (r *repository) List(ctx context.Context, scope *uuid.UUID, filters shared.ListFilters) ([]Company, int, error) {
	order, err := filters.OrderClause(sortColumns, "name")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	if scope != nil {
		w.And("id = " + w.Arg(*scope))
	}
	if filters.IsActive != nil {
		w.And("is_active = " + w.Arg(*filters.IsActive))
	}
	if filters.Search != "" {
		p := w.Arg("%" + filters.Search + "%")
		w.And(fmt.Sprintf("(name ILIKE %s OR trade_name ILIKE %s OR document ILIKE %s)", p, p, p))
	}
	if filters.StartDate != nil {
		w.And("created_at >= " + w.Arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		w.And("created_at <= " + w.Arg(*filters.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM companies "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, "SELECT "+companyColumns+" FROM companies "+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	companies := []Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, *c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, "SELECT "+companyColumns+" FROM companies WHERE id = $1", id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("company")
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) DocumentExists(ctx context.Context, document string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE document = $1 AND id <> $2)`, document, exclude).Scan(&exists)
	return exists, err
}

func (r *repository) EmailInUse(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, c Company) error {
	_, err := r.db.Exec(ctx, `INSERT INTO companies (id, name, trade_name, document, email, phone, address, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`, c.ID, c.Name, c.TradeName, c.Document, c.Email, c.Phone, c.Address, c.IsActive, c.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("company document %s already exists", c.Document)
	}
	return err
}

func (r *repository) Update(ctx context.Context, c Company) error {
	tag, err := r.db.Exec(ctx, `UPDATE companies SET name = $2, trade_name = $3, document = $4, email = $5, phone = $6, address = $7, updated_at = NOW()
WHERE id = $1`, c.ID, c.Name, c.TradeName, c.Document, c.Email, c.Phone, c.Address)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("company document %s already exists", c.Document)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("company")
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE companies SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("company")
	}
	return nil
}

func (r *repository) CountActiveUsers(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE company_id = $1 AND is_active`, id).Scan(&n)
	return n, err
}

func (r *repository) CountOrders(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE company_id = $1`, id).Scan(&n)
	return n, err
}

// CreateAdmin inserts the administrator role, its permissions and the first user.
func (r *repository) CreateAdmin(ctx context.Context, companyID uuid.UUID, a Admin) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO roles (id, company_id, name, description) VALUES ($1, $2, 'Administrator', 'Full access')`, a.RoleID, companyID); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `INSERT INTO role_permissions (role_id, permission) SELECT $1, unnest($2::text[])`, a.RoleID, a.Permissions); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, company_id, name, email, password_hash, is_active) VALUES ($1, $2, $3, $4, $5, TRUE)`,
		a.ID, companyID, a.Name, a.Email, a.PasswordHash)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("email %s is already in use", a.Email)
		}
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, a.ID, a.RoleID)
	return err
}

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	if err := row.Scan(&c.ID, &c.Name, &c.TradeName, &c.Document, &c.Email, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
