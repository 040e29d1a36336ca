package users

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

// Repository defines data access for users.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]User, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*User, error)
	EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, user User) error
	Update(ctx context.Context, user User) error
	SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error
	SetRoles(ctx context.Context, companyID, id uuid.UUID, roleIDs []uuid.UUID) error
	CountRoles(ctx context.Context, companyID uuid.UUID, roleIDs []uuid.UUID) (int, error)
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
	"name":      "u.name",
	"email":     "u.email",
	"createdAt": "u.created_at",
	"updatedAt": "u.updated_at",
}

const userColumns = `u.id, u.company_id, u.name, u.email, u.password_hash, u.is_active, u.created_at, u.updated_at,
COALESCE((SELECT json_agg(json_build_object('id', r.id, 'name', r.name) ORDER BY r.name)
	FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id), '[]'::json)`

func (r *repository) List(ctx context.Context, companyID uuid.UUID, filters shared.ListFilters) ([]User, int, error) {
	order, err := filters.OrderClause(sortColumns, "u.created_at")
	if err != nil {
		return nil, 0, err
	}
	var w db.Where
	w.And("u.company_id = " + w.Arg(companyID))
	if filters.IsActive != nil {
		w.And("u.is_active = " + w.Arg(*filters.IsActive))
	}
	if filters.Search != "" {
		p := w.Arg("%" + filters.Search + "%")
		w.And(fmt.Sprintf("(u.name ILIKE %s OR u.email ILIKE %s)", p, p))
	}
	if filters.StartDate != nil {
		w.And("u.created_at >= " + w.Arg(*filters.StartDate))
	}
	if filters.EndDate != nil {
		w.And("u.created_at <= " + w.Arg(*filters.EndDate))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users u "+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := w.Page(filters.Limit, filters.Offset())
	rows, err := r.db.Query(ctx, "SELECT "+userColumns+" FROM users u "+w.SQL()+" ORDER BY "+order+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users u WHERE u.company_id = $1 AND u.id = $2", companyID, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("user")
		}
		return nil, err
	}
	return u, nil
}

func (r *repository) EmailExists(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id <> $2)`,
		strings.TrimSpace(email), exclude).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, u User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, company_id, name, email, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`, u.ID, u.CompanyID, u.Name, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return shared.Conflict("email %s is already in use", u.Email)
	}
	return err
}

func (r *repository) Update(ctx context.Context, u User) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET name = $3, email = $4, password_hash = $5, updated_at = NOW()
WHERE company_id = $1 AND id = $2`, u.CompanyID, u.ID, u.Name, u.Email, u.PasswordHash)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return shared.Conflict("email %s is already in use", u.Email)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("user")
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("user")
	}
	return nil
}

func (r *repository) SetRoles(ctx context.Context, companyID, id uuid.UUID, roleIDs []uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT $1, r.id FROM roles r WHERE r.company_id = $2 AND r.id = ANY($3)`, id, companyID, roleIDs)
	return err
}

func (r *repository) CountRoles(ctx context.Context, companyID uuid.UUID, roleIDs []uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE company_id = $1 AND id = ANY($2)`, companyID, roleIDs).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.Roles); err != nil {
		return nil, err
	}
	return &u, nil
}
