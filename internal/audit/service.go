// Package audit reads the tenant audit trail written by shared.AuditLogger.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// MaxExportRows caps a CSV export.
const MaxExportRows = 10000

var sortColumns = map[string]string{
	"at":     "a.occurred_at",
	"action": "a.action",
	"entity": "a.entity",
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService creates the audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the company timeline, newest first by default.
func (s *Service) Timeline(ctx context.Context, companyID uuid.UUID, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	filters.ListFilters = filters.Normalize()
	order, err := filters.OrderClause(sortColumns, "a.occurred_at")
	if err != nil {
		return Result{}, err
	}
	rows, total, err := s.repo.Timeline(ctx, companyID, filters, order)
	if err != nil {
		return Result{}, fmt.Errorf("audit timeline: %w", err)
	}
	return Result{Rows: rows, Pagination: shared.NewPagination(filters.Page, filters.Limit, total)}, nil
}

// Export returns up to MaxExportRows entries matching filters.
func (s *Service) Export(ctx context.Context, companyID uuid.UUID, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	rows, err := s.repo.All(ctx, companyID, filters, MaxExportRows)
	if err != nil {
		return nil, fmt.Errorf("audit export: %w", err)
	}
	return rows, nil
}
