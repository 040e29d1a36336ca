package partners

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=partners
type Repository interface {
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Partner, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*Partner, error)
	NameExists(ctx context.Context, companyID uuid.UUID, name string, exclude uuid.UUID) (bool, error)
	DocumentExists(ctx context.Context, companyID uuid.UUID, document string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, p *Partner) error
	Update(ctx context.Context, p *Partner) error
	SetActive(ctx context.Context, companyID, id uuid.UUID, active bool) error
}

// Service handles partner business logic.
type Service struct {
	repo   Repository
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns a page of partners.
func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter) ([]Partner, shared.Pagination, error) {
	partners, total, err := s.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list partners: %w", err)
	}
	return partners, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one partner.
func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*Partner, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Create registers a partner. Names are unique among the active partners of
// a company and documents are unique per company.
func (s *Service) Create(ctx context.Context, p shared.Principal, in PartnerInput) (*Partner, error) {
	partner := fromInput(in)
	partner.ID = uuid.New()
	partner.CompanyID = p.CompanyID
	partner.IsActive = true
	partner.CreatedAt = time.Now().UTC()
	partner.UpdatedAt = partner.CreatedAt

	if err := s.ensureUnique(ctx, partner, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &partner); err != nil {
		return nil, fmt.Errorf("create partner: %w", err)
	}
	s.record(ctx, p, partner.ID, shared.AuditCreate, map[string]any{"name": partner.Name, "type": partner.Type})
	return &partner, nil
}

// Update replaces the editable fields of a partner.
func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in PartnerInput) (*Partner, error) {
	current, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	next := fromInput(in)
	next.ID = id
	next.CompanyID = p.CompanyID
	next.IsActive = current.IsActive
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	if err := s.ensureUnique(ctx, next, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update partner: %w", err)
	}
	s.record(ctx, p, id, shared.AuditUpdate, map[string]any{"name": next.Name})
	return &next, nil
}

// Delete soft-deletes a partner.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, p.CompanyID, id, false); err != nil {
		return err
	}
	s.record(ctx, p, id, shared.AuditDelete, nil)
	return nil
}

// Restore reactivates a partner unless an active partner took its name.
func (s *Service) Restore(ctx context.Context, p shared.Principal, id uuid.UUID) (*Partner, error) {
	partner, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if partner.IsActive {
		return partner, nil
	}
	taken, err := s.repo.NameExists(ctx, p.CompanyID, partner.Name, id)
	if err != nil {
		return nil, fmt.Errorf("check partner name: %w", err)
	}
	if taken {
		return nil, shared.Conflict("an active partner named %q already exists", partner.Name)
	}
	if err := s.repo.SetActive(ctx, p.CompanyID, id, true); err != nil {
		return nil, err
	}
	partner.IsActive = true
	s.record(ctx, p, id, shared.AuditRestore, nil)
	return partner, nil
}

func (s *Service) ensureUnique(ctx context.Context, partner Partner, exclude uuid.UUID) error {
	taken, err := s.repo.NameExists(ctx, partner.CompanyID, partner.Name, exclude)
	if err != nil {
		return fmt.Errorf("check partner name: %w", err)
	}
	if taken {
		return shared.Conflict("partner %q already exists", partner.Name)
	}
	if partner.Document == "" {
		return nil
	}
	taken, err = s.repo.DocumentExists(ctx, partner.CompanyID, partner.Document, exclude)
	if err != nil {
		return fmt.Errorf("check partner document: %w", err)
	}
	if taken {
		return shared.Conflict("partner document %s already exists", partner.Document)
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
		Entity:    "partner",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit partner", slog.String("action", action), slog.Any("error", err))
	}
}

func fromInput(in PartnerInput) Partner {
	return Partner{
		Type:     in.Type,
		Name:     strings.TrimSpace(in.Name),
		Document: shared.NormalizeDocument(in.Document),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
		Notes:    strings.TrimSpace(in.Notes),
	}
}
