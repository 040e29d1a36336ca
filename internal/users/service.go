package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// CacheInvalidator drops cached permission sets of a company.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, companyID uuid.UUID)
}

// Service handles user business logic.
type Service struct {
	repo   Repository
	cache  CacheInvalidator
	audit  shared.Auditor
	logger *slog.Logger
	cost   int
}

// NewService builds Service instance.
func NewService(repo Repository, cache CacheInvalidator, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger, cost: bcrypt.DefaultCost}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, p shared.Principal, filters shared.ListFilters) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.List(ctx, p.CompanyID, filters)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return users, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Create registers a user in the principal's company.
func (s *Service) Create(ctx context.Context, p shared.Principal, in CreateInput) (*User, error) {
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.New(),
		CompanyID:    p.CompanyID,
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var created *User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := ensureUniqueEmail(ctx, tx, user.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if err := assignRoles(ctx, tx, p.CompanyID, user.ID, in.RoleIDs); err != nil {
			return err
		}
		created, err = tx.Get(ctx, p.CompanyID, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, shared.AuditCreate, created.ID, map[string]any{"email": created.Email})
	return created, nil
}

// Update changes profile fields and optionally the password.
func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in UpdateInput) (*User, error) {
	var updated *User
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		user, err := tx.Get(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		user.Name = strings.TrimSpace(in.Name)
		user.Email = normalizeEmail(in.Email)
		if err := ensureUniqueEmail(ctx, tx, user.Email, id); err != nil {
			return err
		}
		if in.Password != "" {
			if user.PasswordHash, err = HashPassword(in.Password, s.cost); err != nil {
				return err
			}
		}
		if err := tx.Update(ctx, *user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated, err = tx.Get(ctx, p.CompanyID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"email": updated.Email})
	return updated, nil
}

// Delete deactivates a user. Users cannot deactivate themselves.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	if id == p.UserID {
		return shared.Conflict("you cannot deactivate your own user")
	}
	if err := s.repo.SetActive(ctx, p.CompanyID, id, false); err != nil {
		return err
	}
	s.invalidate(ctx, p.CompanyID)
	s.record(ctx, p, shared.AuditDelete, id, nil)
	return nil
}

// Restore reactivates a user.
func (s *Service) Restore(ctx context.Context, p shared.Principal, id uuid.UUID) (*User, error) {
	if err := s.repo.SetActive(ctx, p.CompanyID, id, true); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.CompanyID)
	s.record(ctx, p, shared.AuditRestore, id, nil)
	return s.repo.Get(ctx, p.CompanyID, id)
}

// SetRoles replaces the roles of a user.
func (s *Service) SetRoles(ctx context.Context, p shared.Principal, id uuid.UUID, roleIDs []uuid.UUID) (*User, error) {
	var updated *User
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, p.CompanyID, id); err != nil {
			return err
		}
		if err := assignRoles(ctx, tx, p.CompanyID, id, roleIDs); err != nil {
			return err
		}
		var err error
		updated, err = tx.Get(ctx, p.CompanyID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.CompanyID)
	s.record(ctx, p, shared.AuditUpdate, id, map[string]any{"roles": roleIDs})
	return updated, nil
}

func assignRoles(ctx context.Context, repo Repository, companyID, userID uuid.UUID, roleIDs []uuid.UUID) error {
	ids := dedupe(roleIDs)
	if len(ids) > 0 {
		n, err := repo.CountRoles(ctx, companyID, ids)
		if err != nil {
			return fmt.Errorf("check roles: %w", err)
		}
		if n != len(ids) {
			return shared.Validation("one or more roles do not exist")
		}
	}
	if err := repo.SetRoles(ctx, companyID, userID, ids); err != nil {
		return fmt.Errorf("set roles: %w", err)
	}
	return nil
}

func ensureUniqueEmail(ctx context.Context, repo Repository, email string, exclude uuid.UUID) error {
	exists, err := repo.EmailExists(ctx, email, exclude)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return shared.Conflict("email %s is already in use", email)
	}
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
		Entity:    "user",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit user", slog.String("action", action), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
