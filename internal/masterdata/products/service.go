package products

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

const defaultUnit = "UN"

// StockReader computes stock balances from movements.
type StockReader interface {
	BalanceAt(ctx context.Context, companyID, productID uuid.UUID, at time.Time) (decimal.Decimal, error)
}

type Service struct {
	repo   Repository
	stock  StockReader
	audit  shared.Auditor
	logger *slog.Logger
}

func NewService(repo Repository, stock StockReader, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, stock: stock, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list products: %w", err)
	}
	return products, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*Product, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Create registers a product with zero stock. Stock only changes through
// stock movements.
func (s *Service) Create(ctx context.Context, p shared.Principal, in ProductInput) (*Product, error) {
	product := fromInput(in)
	if err := s.check(ctx, p.CompanyID, product, uuid.Nil); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	product.ID = uuid.New()
	product.CompanyID = p.CompanyID
	product.Stock = decimal.Zero
	product.IsActive = true
	product.CreatedAt = now
	product.UpdatedAt = now
	if err := s.repo.Create(ctx, &product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.record(ctx, p, product.ID, shared.AuditCreate, map[string]any{"sku": product.SKU, "name": product.Name})
	return &product, nil
}

func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in ProductInput) (*Product, error) {
	current, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	next := fromInput(in)
	if err := s.check(ctx, p.CompanyID, next, id); err != nil {
		return nil, err
	}
	next.ID = id
	next.CompanyID = p.CompanyID
	next.Stock = current.Stock
	next.IsActive = current.IsActive
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.record(ctx, p, id, shared.AuditUpdate, map[string]any{"sku": next.SKU, "price": next.Price.String()})
	return &next, nil
}

func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, p.CompanyID, id, false); err != nil {
		return err
	}
	s.record(ctx, p, id, shared.AuditDelete, nil)
	return nil
}

func (s *Service) Restore(ctx context.Context, p shared.Principal, id uuid.UUID) (*Product, error) {
	if err := s.repo.SetActive(ctx, p.CompanyID, id, true); err != nil {
		return nil, err
	}
	s.record(ctx, p, id, shared.AuditRestore, nil)
	return s.repo.Get(ctx, p.CompanyID, id)
}

// StockAt returns the balance of a product before at.
func (s *Service) StockAt(ctx context.Context, p shared.Principal, id uuid.UUID, at time.Time) (*StockBalance, error) {
	product, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	balance, err := s.stock.BalanceAt(ctx, p.CompanyID, id, at)
	if err != nil {
		return nil, fmt.Errorf("stock balance: %w", err)
	}
	return &StockBalance{ProductID: id, At: at, Balance: balance, MinStock: product.MinStock}, nil
}

func (s *Service) check(ctx context.Context, companyID uuid.UUID, product Product, exclude uuid.UUID) error {
	if product.SKU == "" || product.Name == "" {
		return shared.Validation("sku and name are required")
	}
	taken, err := s.repo.SKUExists(ctx, companyID, product.SKU, exclude)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if taken {
		return shared.Conflict("product sku %s already exists", product.SKU)
	}
	if product.CategoryID == nil {
		return nil
	}
	ok, err := s.repo.CategoryActive(ctx, companyID, *product.CategoryID)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return shared.Validation("category %s does not exist", product.CategoryID)
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
		Entity:    "product",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit product", slog.String("action", action), slog.Any("error", err))
	}
}

func fromInput(in ProductInput) Product {
	unit := strings.ToUpper(strings.TrimSpace(in.Unit))
	if unit == "" {
		unit = defaultUnit
	}
	return Product{
		CategoryID:  in.CategoryID,
		SKU:         strings.ToUpper(strings.TrimSpace(in.SKU)),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Unit:        unit,
		Price:       in.Price.Round(2),
		Cost:        in.Cost.Round(2),
		MinStock:    in.MinStock,
	}
}
