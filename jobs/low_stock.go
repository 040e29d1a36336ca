package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/alvarodevdoo/erp/internal/inventory"
	jobmetrics "github.com/alvarodevdoo/erp/internal/jobs"
)

// DefaultLowStockScanLimit bounds one scan across all tenants.
const DefaultLowStockScanLimit = 500

// StockScanner lists products under their minimum stock. A nil company scans
// every tenant.
type StockScanner interface {
	LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]inventory.LowStockProduct, error)
}

// LowStockJob logs and gauges products that need replenishing.
type LowStockJob struct {
	Stock   StockScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockJob constructs the job handler.
func NewLowStockJob(stock StockScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{Stock: stock, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *LowStockJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: dependencies not configured")
	}
	var payload LowStockPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = DefaultLowStockScanLimit
	}

	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	products, err := j.Stock.LowStock(ctx, nil, limit)
	if err != nil {
		logger(j.Logger).Error("low stock scan", slog.Any("error", err))
		return err
	}
	perCompany := CountByCompany(products)
	for companyID, n := range perCompany {
		j.Metrics.SetLowStock(companyID, n)
	}
	for _, p := range products {
		logger(j.Logger).Warn("product below minimum stock",
			slog.String("company_id", p.CompanyID.String()),
			slog.String("sku", p.SKU),
			slog.String("stock", p.Stock.String()),
			slog.String("min_stock", p.MinStock.String()),
		)
	}
	logger(j.Logger).Info("low stock scan finished", slog.Int("products", len(products)), slog.Int("companies", len(perCompany)))
	return nil
}

// CountByCompany groups low-stock products per tenant.
func CountByCompany(products []inventory.LowStockProduct) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, p := range products {
		out[p.CompanyID]++
	}
	return out
}
