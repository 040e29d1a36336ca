package categories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

type Service struct {
	repo   Repository
	audit  shared.Auditor
	logger *slog.Logger
}

func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, filters shared.ListFilters) ([]Category, shared.Pagination, error) {
	categories, total, err := s.repo.List(ctx, p.CompanyID, filters)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list categories: %w", err)
	}
	return categories, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*Category, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

func (s *Service) Create(ctx context.Context, p shared.Principal, in CategoryInput) (*Category, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, p.CompanyID, in.Name, uuid.Nil); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	category := Category{
		ID:          uuid.New(),
		CompanyID:   p.CompanyID,
		Name:        in.Name,
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.record(ctx, p, category.ID, shared.AuditCreate, map[string]any{"name": category.Name})
	return &category, nil
}

func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in CategoryInput) (*Category, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	category, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, p.CompanyID, in.Name, id); err != nil {
		return nil, err
	}
	category.Name = in.Name
	category.Description = in.Description
	category.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.record(ctx, p, id, shared.AuditUpdate, map[string]any{"name": category.Name})
	return category, nil
}

// Delete soft-deletes a category. Its products keep the reference.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, p.CompanyID, id, false); err != nil {
		return err
	}
	s.record(ctx, p, id, shared.AuditDelete, nil)
	return nil
}

func (s *Service) Restore(ctx context.Context, p shared.Principal, id uuid.UUID) (*Category, error) {
	if err := s.repo.SetActive(ctx, p.CompanyID, id, true); err != nil {
		return nil, err
	}
	s.record(ctx, p, id, shared.AuditRestore, nil)
	return s.repo.Get(ctx, p.CompanyID, id)
}

func (s *Service) ensureUniqueName(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) error {
	taken, err := s.repo.NameExists(ctx, companyID, name, exclude)
	if err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if taken {
		return shared.Conflict("category %q already exists", name)
	}
	return nil
}

func (s *Service) record(ctx context.Context, p shared.Principal, id uuid.UUID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: p.CompanyID,
		ActorID:   p.UserID,
		Action:    action,
		Entity:    "category",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit category", slog.String("action", action), slog.Any("error", err))
	}
}
