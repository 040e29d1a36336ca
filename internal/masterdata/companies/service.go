package companies

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

// Service handles company business logic.
type Service struct {
	repo       Repository
	audit      shared.Auditor
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds a Service.
func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// List returns a page of companies. A non-nil scope restricts the listing to
// that company.
func (s *Service) List(ctx context.Context, scope *uuid.UUID, filters shared.ListFilters) ([]Company, shared.Pagination, error) {
	companies, total, err := s.repo.List(ctx, scope, filters)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list companies: %w", err)
	}
	return companies, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get returns one company.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Company, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a company and, when requested, its first administrator.
func (s *Service) Create(ctx context.Context, p shared.Principal, in CreateInput) (*Company, error) {
	company := fromInput(in.company())
	company.ID = uuid.New()
	company.IsActive = true
	company.CreatedAt = time.Now().UTC()
	company.UpdatedAt = company.CreatedAt

	var admin *Admin
	if in.Admin != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Admin.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		admin = &Admin{
			ID:           uuid.New(),
			RoleID:       uuid.New(),
			Name:         strings.TrimSpace(in.Admin.Name),
			Email:        strings.ToLower(strings.TrimSpace(in.Admin.Email)),
			PasswordHash: string(hash),
			Permissions:  shared.AllScopes(),
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := ensureUniqueDocument(ctx, tx, company.Document, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		if admin == nil {
			return nil
		}
		inUse, err := tx.EmailInUse(ctx, admin.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if inUse {
			return shared.Conflict("email %s is already in use", admin.Email)
		}
		if err := tx.CreateAdmin(ctx, company.ID, *admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, company.ID, shared.AuditCreate, map[string]any{"name": company.Name, "document": company.Document})
	return &company, nil
}

// Update changes the registration data of a company.
func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in CompanyInput) (*Company, error) {
	var updated *Company
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		next := fromInput(in)
		next.ID = id
		next.IsActive = current.IsActive
		next.CreatedAt = current.CreatedAt
		if err := ensureUniqueDocument(ctx, tx, next.Document, id); err != nil {
			return err
		}
		if err := tx.Update(ctx, next); err != nil {
			return fmt.Errorf("update company: %w", err)
		}
		updated, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, id, shared.AuditUpdate, map[string]any{"name": updated.Name})
	return updated, nil
}

// Delete soft-deletes a company. Companies with active users or any order
// cannot be deleted.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return err
		}
		users, err := tx.CountActiveUsers(ctx, id)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		orders, err := tx.CountOrders(ctx, id)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		if users > 0 || orders > 0 {
			return shared.Conflict("company has %d active user(s) and %d order(s)", users, orders)
		}
		return tx.SetActive(ctx, id, false)
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, id, shared.AuditDelete, nil)
	return nil
}

// Restore reactivates a soft-deleted company.
func (s *Service) Restore(ctx context.Context, p shared.Principal, id uuid.UUID) (*Company, error) {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return nil, err
	}
	s.record(ctx, p, id, shared.AuditRestore, nil)
	return s.repo.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, p shared.Principal, id uuid.UUID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: p.CompanyID,
		ActorID:   p.UserID,
		Action:    action,
		Entity:    "company",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit company", slog.String("action", action), slog.Any("error", err))
	}
}

func ensureUniqueDocument(ctx context.Context, repo Repository, document string, exclude uuid.UUID) error {
	if document == "" {
		return shared.Validation("document is required")
	}
	exists, err := repo.DocumentExists(ctx, document, exclude)
	if err != nil {
		return fmt.Errorf("check document: %w", err)
	}
	if exists {
		return shared.Conflict("company document %s already exists", document)
	}
	return nil
}

func fromInput(in CompanyInput) Company {
	return Company{
		Name:      strings.TrimSpace(in.Name),
		TradeName: strings.TrimSpace(in.TradeName),
		Document:  shared.NormalizeDocument(in.Document),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
	}
}
