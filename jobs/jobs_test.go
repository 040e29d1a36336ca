package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarodevdoo/erp/internal/inventory"
	jobmetrics "github.com/alvarodevdoo/erp/internal/jobs"
)

type fakeExpirer struct {
	at  time.Time
	n   int
	err error
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	f.at = now
	return f.n, f.err
}

type fakeCleaner struct{ retention time.Duration }

func (f *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.retention = olderThan
	return 4, nil
}

type fakeScanner struct {
	products []inventory.LowStockProduct
	company  *uuid.UUID
	limit    int
}

func (f *fakeScanner) LowStock(ctx context.Context, companyID *uuid.UUID, limit int) ([]inventory.LowStockProduct, error) {
	f.company = companyID
	f.limit = limit
	return f.products, nil
}

func TestQuoteExpiryJob(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	svc := &fakeExpirer{n: 3}
	job := NewQuoteExpiryJob(svc, nil, metrics)
	fixed := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return fixed }

	require.NoError(t, job.Handle(context.Background(), NewQuoteExpiryTask()))
	assert.Equal(t, fixed, svc.at)

	svc.err = errors.New("db down")
	require.Error(t, job.Handle(context.Background(), NewQuoteExpiryTask()))
}

func TestIdempotencyCleanupJob(t *testing.T) {
	store := &fakeCleaner{}
	job := NewIdempotencyCleanupJob(store, nil, nil)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, store.retention)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, DefaultIdempotencyRetention, store.retention)

	err = job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLowStockJob(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	scanner := &fakeScanner{products: []inventory.LowStockProduct{
		{CompanyID: a, SKU: "A-1", Stock: decimal.NewFromInt(1), MinStock: decimal.NewFromInt(5)},
		{CompanyID: a, SKU: "A-2", Stock: decimal.Zero, MinStock: decimal.NewFromInt(2)},
		{CompanyID: b, SKU: "B-1", Stock: decimal.NewFromInt(3), MinStock: decimal.NewFromInt(4)},
	}}
	reg := prometheus.NewRegistry()
	job := NewLowStockJob(scanner, nil, jobmetrics.NewMetrics(reg))

	task, err := NewLowStockScanTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Nil(t, scanner.company)
	assert.Equal(t, DefaultLowStockScanLimit, scanner.limit)

	counts := CountByCompany(scanner.products)
	assert.Equal(t, 2, counts[a])
	assert.Equal(t, 1, counts[b])

	n, err := testutil.GatherAndCount(reg, "erp_low_stock_products")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewTask(t *testing.T) {
	task, err := NewTask(TaskLowStockScan, 25)
	require.NoError(t, err)
	var payload LowStockPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, 25, payload.Limit)

	_, err = NewTask("mail:send", 0)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func TestJobsHealth(t *testing.T) {
	serve := func(inspector QueueInspector) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", NewHandler(inspector, nil).MountRoutes)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rr
	}

	rr := serve(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 7, Retry: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pending":7`)
	assert.Contains(t, rr.Body.String(), `"retry":1`)

	rr = serve(fakeInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = serve(nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
