// Package dashboard computes the tenant KPIs shown on the home screen.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alvarodevdoo/erp/internal/inventory"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/sales/pricing"
)

// DefaultLowStockLimit caps the low-stock list.
const DefaultLowStockLimit = 10

// StockReader lists products under their minimum stock.
type StockReader interface {
	LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]inventory.LowStockProduct, error)
}

// StatusCounts is a per-status document count.
type StatusCounts struct {
	ByStatus map[string]int `json:"byStatus"`
	Total    int            `json:"total"`
}

// QuoteKPIs adds the conversion rate to the quote counts.
type QuoteKPIs struct {
	StatusCounts
	// ConversionRate is converted / decided quotes, in percent.
	ConversionRate decimal.Decimal `json:"conversionRate"`
}

// KPIs is the dashboard payload.
type KPIs struct {
	GeneratedAt time.Time                   `json:"generatedAt"`
	Quotes      QuoteKPIs                   `json:"quotes"`
	Orders      StatusCounts                `json:"orders"`
	Totals      OrderTotals                 `json:"totals"`
	LowStock    []inventory.LowStockProduct `json:"lowStock"`
}

// Service assembles KPIs.
type Service struct {
	repo          Repository
	stock         StockReader
	cache         *Cache
	logger        *slog.Logger
	lowStockLimit int
	now           func() time.Time
}

// NewService wires the dependencies. cache may be nil.
func NewService(repo Repository, stock StockReader, cache *Cache, lowStockLimit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if lowStockLimit <= 0 {
		lowStockLimit = DefaultLowStockLimit
	}
	return &Service{repo: repo, stock: stock, cache: cache, logger: logger, lowStockLimit: lowStockLimit,
		now: func() time.Time { return time.Now().UTC() }}
}

// KPIs returns the cached KPIs of a company, computing them on a miss.
// refresh drops the cached copy first.
func (s *Service) KPIs(ctx context.Context, companyID uuid.UUID, refresh bool) (KPIs, error) {
	if refresh {
		if err := s.cache.Invalidate(ctx, companyID); err != nil {
			s.logger.Warn("dashboard cache invalidate failed", slog.String("company_id", companyID.String()), slog.Any("error", err))
		}
	}
	var out KPIs
	err := s.cache.FetchJSON(ctx, keyKPI(companyID), &out, func(ctx context.Context) (any, error) {
		return s.compute(ctx, companyID)
	})
	if err != nil {
		return KPIs{}, fmt.Errorf("dashboard kpis: %w", err)
	}
	return out, nil
}

func (s *Service) compute(ctx context.Context, companyID uuid.UUID) (KPIs, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	data := KPIs{GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.repo.QuotesByStatus(ctx, companyID)
		if err != nil {
			return fmt.Errorf("quotes by status: %w", err)
		}
		data.Quotes = quoteKPIs(counts)
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.OrdersByStatus(ctx, companyID)
		if err != nil {
			return fmt.Errorf("orders by status: %w", err)
		}
		data.Orders = fill(counts, orderStatuses())
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.OrderTotals(ctx, companyID, now, monthStart)
		if err != nil {
			return fmt.Errorf("order totals: %w", err)
		}
		data.Totals = totals
		return nil
	})
	g.Go(func() error {
		products, err := s.stock.LowStock(ctx, &companyID, s.lowStockLimit)
		if err != nil {
			return fmt.Errorf("low stock: %w", err)
		}
		data.LowStock = products
		return nil
	})
	if err := g.Wait(); err != nil {
		return KPIs{}, err
	}
	return data, nil
}

func quoteKPIs(counts map[string]int) QuoteKPIs {
	k := QuoteKPIs{
		StatusCounts:   fill(counts, quoteStatuses()),
		ConversionRate: decimal.Zero,
	}
	converted := counts[string(lifecycle.QuoteConverted)]
	decided := converted + counts[string(lifecycle.QuoteRejected)] + counts[string(lifecycle.QuoteExpired)]
	if decided > 0 {
		k.ConversionRate = pricing.Round(decimal.NewFromInt(int64(converted * 100)).Div(decimal.NewFromInt(int64(decided))))
	}
	return k
}

// fill reports every known status, zero when absent.
func fill(counts map[string]int, statuses []string) StatusCounts {
	out := StatusCounts{ByStatus: make(map[string]int, len(statuses))}
	for _, st := range statuses {
		out.ByStatus[st] = counts[st]
		out.Total += counts[st]
	}
	return out
}

func quoteStatuses() []string {
	return []string{
		string(lifecycle.QuoteDraft), string(lifecycle.QuoteSent), string(lifecycle.QuoteApproved),
		string(lifecycle.QuoteRejected), string(lifecycle.QuoteExpired), string(lifecycle.QuoteConverted),
	}
}

func orderStatuses() []string {
	return []string{
		string(lifecycle.OrderPending), string(lifecycle.OrderInProgress), string(lifecycle.OrderPaused),
		string(lifecycle.OrderCompleted), string(lifecycle.OrderCancelled),
	}
}
