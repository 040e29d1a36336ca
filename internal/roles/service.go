package roles

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// CacheInvalidator drops cached permission sets of a company.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, companyID uuid.UUID)
}

// Service handles role business logic.
type Service struct {
	repo   Repository
	cache  CacheInvalidator
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, cache CacheInvalidator, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// List returns a page of roles.
func (s *Service) List(ctx context.Context, p shared.Principal, filters shared.ListFilters) ([]Role, shared.Pagination, error) {
	roles, total, err := s.repo.List(ctx, p.CompanyID, filters)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list roles: %w", err)
	}
	return roles, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get returns one role.
func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*Role, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Create inserts a role with its permissions.
func (s *Service) Create(ctx context.Context, p shared.Principal, in RoleInput) (*Role, error) {
	name := strings.TrimSpace(in.Name)
	now := time.Now().UTC()
	role := Role{
		ID:          uuid.New(),
		CompanyID:   p.CompanyID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := ensureUniqueName(ctx, tx, p.CompanyID, name, uuid.Nil); err != nil {
			return err
		}
		perms, err := validatePermissions(ctx, tx, in.Permissions)
		if err != nil {
			return err
		}
		role.Permissions = perms
		if err := tx.Create(ctx, role); err != nil {
			return fmt.Errorf("create role: %w", err)
		}
		return tx.SetPermissions(ctx, role.ID, perms)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, shared.AuditCreate, role.ID, map[string]any{"name": role.Name})
	return &role, nil
}

// Update changes name, description and, when given, permissions.
func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in RoleInput) (*Role, error) {
	var updated *Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		role, err := tx.Get(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		role.Name = strings.TrimSpace(in.Name)
		role.Description = strings.TrimSpace(in.Description)
		if err := ensureUniqueName(ctx, tx, p.CompanyID, role.Name, id); err != nil {
			return err
		}
		if err := tx.Update(ctx, *role); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		if in.Permissions != nil {
			perms, err := validatePermissions(ctx, tx, in.Permissions)
			if err != nil {
				return err
			}
			if err := tx.SetPermissions(ctx, id, perms); err != nil {
				return fmt.Errorf("set permissions: %w", err)
			}
			role.Permissions = perms
		}
		updated = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.CompanyID)
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"name": updated.Name})
	return updated, nil
}

// SetPermissions replaces the permission set of a role.
func (s *Service) SetPermissions(ctx context.Context, p shared.Principal, id uuid.UUID, names []string) (*Role, error) {
	var updated *Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		role, err := tx.Get(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		perms, err := validatePermissions(ctx, tx, names)
		if err != nil {
			return err
		}
		if err := tx.SetPermissions(ctx, id, perms); err != nil {
			return fmt.Errorf("set permissions: %w", err)
		}
		role.Permissions = perms
		updated = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.CompanyID)
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"permissions": updated.Permissions})
	return updated, nil
}

// Delete removes a role that is not assigned to any user.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, p.CompanyID, id); err != nil {
			return err
		}
		n, err := tx.CountUsers(ctx, id)
		if err != nil {
			return fmt.Errorf("count role users: %w", err)
		}
		if n > 0 {
			return shared.Conflict("role is assigned to %d user(s)", n)
		}
		return tx.Delete(ctx, p.CompanyID, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, p.CompanyID)
	s.record(ctx, p, shared.AuditDelete, id, nil)
	return nil
}

func (s *Service) invalidate(ctx context.Context, companyID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, companyID)
	}
}

func (s *Service) record(ctx context.Context, p shared.Principal, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: p.CompanyID,
		ActorID:   p.UserID,
		Action:    action,
		Entity:    "role",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit role", slog.String("action", action), slog.Any("error", err))
	}
}

func ensureUniqueName(ctx context.Context, repo Repository, companyID uuid.UUID, name string, exclude uuid.UUID) error {
	exists, err := repo.NameExists(ctx, companyID, name, exclude)
	if err != nil {
		return fmt.Errorf("check role name: %w", err)
	}
	if exists {
		return shared.Conflict("role %q already exists", name)
	}
	return nil
}

func validatePermissions(ctx context.Context, repo Repository, names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	perms := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		perms = append(perms, n)
	}
	sort.Strings(perms)
	if len(perms) == 0 {
		return perms, nil
	}
	known, err := repo.KnownPermissions(ctx, perms)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	var unknown []string
	for _, p := range perms {
		if _, ok := knownSet[p]; !ok {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) > 0 {
		return nil, shared.Validation("unknown permissions: %s", strings.Join(unknown, ", "))
	}
	return perms, nil
}
