package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

const selectUser = `SELECT u.id, u.company_id, u.name, u.email, u.password_hash, (u.is_active AND c.is_active), u.created_at, u.updated_at
FROM users u JOIN companies c ON c.id = u.company_id`

// FindByEmail fetches a user by email. Only users of an active company are
// reported as active.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scan(r.db.QueryRow(ctx, selectUser+` WHERE lower(u.email) = $1`, strings.ToLower(strings.TrimSpace(email))))
}

// FindByID fetches a user inside a company.
func (r *PGRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*User, error) {
	return r.scan(r.db.QueryRow(ctx, selectUser+` WHERE u.company_id = $1 AND u.id = $2`, companyID, id))
}

func (r *PGRepository) scan(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, shared.NotFound("user")
		}
		return nil, err
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
