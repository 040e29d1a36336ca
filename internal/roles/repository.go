package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository defines data access for roles.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]Role, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*Role, error)
	NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, role Role) error
	Update(ctx context.Context, role Role) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	CountUsers(ctx context.Context, id uuid.UUID) (int, error)
	SetPermissions(ctx context.Context, id uuid.UUID, perms []string) error
	KnownPermissions(ctx context.Context, names []string) ([]string, error)
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
	"name":      "r.name",
	"createdAt": "r.created_at",
	"updatedAt": "r.updated_at",
}

const roleColumns = `r.id, r.company_id, r.name, r.description, r.created_at, r.updated_at,
COALESCE((SELECT array_agg(rp.permission ORDER BY rp.permission) FROM role_permissions rp WHERE rp.role_id = r.id), '{}')`

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]Role, int, error) {
	order, err := filters.OrderClause(sortColumns, "r.name")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("r.company_id = " + w.Arg(companyID))
	if filters.Search != "" {
		p := w.Arg("%" + filters.Search + "%")
		w.And(fmt.Sprintf("(r.name ILIKE %s OR r.description ILIKE %s)", p, p))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM roles r "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, "SELECT "+roleColumns+" FROM roles r "+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	roles := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, *role)
	}
	return roles, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, "SELECT "+roleColumns+" FROM roles r WHERE r.company_id = $1 AND r.id = $2", companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("role")
		}
		return nil, err
	}
	return role, nil
}

func (r *repository) NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE company_id = $1 AND lower(name) = lower($2) AND id <> $3)`,
		companyID, strings.TrimSpace(name), exclude).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, role Role) error {
	_, err := r.db.Exec(ctx, `INSERT INTO roles (id, company_id, name, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`, role.ID, role.CompanyID, role.Name, role.Description, role.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("role %q already exists", role.Name)
	}
	return err
}

func (r *repository) Update(ctx context.Context, role Role) error {
	tag, err := r.db.Exec(ctx, `UPDATE roles SET name = $3, description = $4, updated_at = NOW() WHERE company_id = $1 AND id = $2`,
		role.CompanyID, role.ID, role.Name, role.Description)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("role %q already exists", role.Name)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("role")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("role")
	}
	return nil
}

func (r *repository) CountUsers(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repository) SetPermissions(ctx context.Context, id uuid.UUID, perms []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `INSERT INTO role_permissions (role_id, permission) SELECT $1, unnest($2::text[])`, id, perms)
	return err
}

func (r *repository) KnownPermissions(ctx context.Context, names []string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM permissions WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	known := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		known = append(known, name)
	}
	return known, rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.CompanyID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt, &role.Permissions); err != nil {
		return nil, err
	}
	return &role, nil
}
