package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/platform/db"
)

// Store reads permission data from PostgreSQL.
type Store interface {
	UserPermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	EnsurePermissions(ctx context.Context, perms []Permission) error
}

// PGStore implements Store.
type PGStore struct {
	db db.DBTX
}

// NewStore constructs a PGStore.
func NewStore(conn db.DBTX) *PGStore {
	return &PGStore{db: conn}
}

// UserPermissions returns the distinct permission names granted to an active
// user through its roles.
func (s *PGStore) UserPermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT rp.permission
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id AND r.company_id = $1
JOIN role_permissions rp ON rp.role_id = r.id
JOIN users u ON u.id = ur.user_id AND u.company_id = $1 AND u.is_active
WHERE ur.user_id = $2
ORDER BY rp.permission`, companyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

// ListPermissions returns the catalog ordered by name.
func (s *PGStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.Query(ctx, `SELECT name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// EnsurePermissions upserts every permission of perms.
func (s *PGStore) EnsurePermissions(ctx context.Context, perms []Permission) error {
	for _, p := range perms {
		if _, err := s.db.Exec(ctx, `INSERT INTO permissions (name, description) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`, p.Name, p.Description); err != nil {
			return err
		}
	}
	return nil
}

var _ Store = (*PGStore)(nil)
