package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]LedgerEntry, int, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (LedgerEntry, error)
	SumBefore(ctx context.Context, companyID, productID uuid.UUID, at time.Time) (decimal.Decimal, error)
	LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]LowStockProduct, error)
}

// MetricsPort counts recorded movements.
type MetricsPort interface {
	StockMovementRecorded(movementType string)
}

// Service coordinates inventory operations.
type Service struct {
	repo    RepositoryPort
	audit   shared.Auditor
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.Auditor, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// Record posts a movement and refreshes the product stock in the same
// transaction. The product row stays locked until commit so concurrent
// movements of one product serialize.
func (s *Service) Record(ctx context.Context, p shared.Principal, in MovementInput) (Movement, error) {
	if err := validateInput(&in); err != nil {
		return Movement{}, err
	}
	m := Movement{
		ID:        uuid.New(),
		CompanyID: p.CompanyID,
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		Reference: in.Reference,
		CreatedAt: s.now().UTC(),
	}
	if p.UserID != uuid.Nil {
		user := p.UserID
		m.UserID = &user
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.LockProduct(ctx, p.CompanyID, in.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return shared.Validation("product %s is inactive", product.Name)
		}
		raw, err := tx.RawBalance(ctx, p.CompanyID, in.ProductID)
		if err != nil {
			return fmt.Errorf("stock balance: %w", err)
		}
		if err := tx.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		m.ProductName = product.Name
		m.PreviousStock = Clamp(raw)
		m.NewStock = Clamp(raw.Add(Signed(m.Type, m.Quantity)))
		if err := tx.SetProductStock(ctx, p.CompanyID, in.ProductID, m.NewStock); err != nil {
			return fmt.Errorf("update product stock: %w", err)
		}
		if product.MinStock.IsPositive() && m.NewStock.LessThan(product.MinStock) {
			s.logger.Info("product below minimum stock",
				slog.String("product_id", product.ID.String()),
				slog.String("stock", m.NewStock.String()),
				slog.String("min_stock", product.MinStock.String()))
		}
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	if s.metrics != nil {
		s.metrics.StockMovementRecorded(string(m.Type))
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			CompanyID: p.CompanyID,
			ActorID:   p.UserID,
			Action:    shared.AuditCreate,
			Entity:    "stock_movement",
			EntityID:  m.ID.String(),
			Meta: map[string]any{
				"product_id": m.ProductID,
				"type":       m.Type,
				"quantity":   m.Quantity.String(),
			},
		})
		if err != nil {
			s.logger.Warn("audit stock movement", slog.Any("error", err))
		}
	}
	return m, nil
}

// List returns annotated movements.
func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter) ([]Movement, shared.Pagination, error) {
	entries, total, err := s.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list stock movements: %w", err)
	}
	movements := make([]Movement, 0, len(entries))
	for _, e := range entries {
		movements = append(movements, Annotate(e))
	}
	return movements, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one annotated movement.
func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (Movement, error) {
	e, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return Movement{}, err
	}
	return Annotate(e), nil
}

// BalanceAt returns the clamped balance of a product before at.
func (s *Service) BalanceAt(ctx context.Context, companyID, productID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	raw, err := s.repo.SumBefore(ctx, companyID, productID, at)
	if err != nil {
		return decimal.Zero, err
	}
	return Clamp(raw), nil
}

// LowStock lists products under their minimum stock. A nil company scans
// every tenant.
func (s *Service) LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]LowStockProduct, error) {
	if limit <= 0 {
		limit = shared.MaxLimit
	}
	return s.repo.LowStock(ctx, companyID, limit)
}

func validateInput(in *MovementInput) error {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Reference = strings.TrimSpace(in.Reference)
	if !in.Type.Valid() {
		return shared.Validation("type must be one of [IN OUT ADJUSTMENT TRANSFER]")
	}
	if in.ProductID == uuid.Nil {
		return shared.Validation("productId is required")
	}
	switch {
	case in.Type == MovementAdjustment && in.Quantity.IsZero():
		return shared.Validation("quantity must not be zero")
	case in.Type != MovementAdjustment && !in.Quantity.IsPositive():
		return shared.Validation("quantity must be greater than 0")
	}
	if in.Type == MovementTransfer && in.Reference == "" {
		return shared.Validation("reference must name the transfer destination")
	}
	return nil
}
