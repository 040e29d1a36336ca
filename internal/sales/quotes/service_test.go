package quotes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/sales/pricing"
	"github.com/alvarodevdoo/erp/internal/shared"
)

type product struct {
	companyID uuid.UUID
	name      string
}

type memoryRepo struct {
	quotes    map[uuid.UUID]Quote
	customers map[uuid.UUID]uuid.UUID
	products  map[uuid.UUID]product
	seq       map[string]int64
	history   []shared.StatusChange
	orders    map[uuid.UUID]NewOrder
	keys      map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quotes:    map[uuid.UUID]Quote{},
		customers: map[uuid.UUID]uuid.UUID{},
		products:  map[uuid.UUID]product{},
		seq:       map[string]int64{},
		orders:    map[uuid.UUID]NewOrder{},
		keys:      map[string]bool{},
	}
}

func (r *memoryRepo) addCustomer(companyID uuid.UUID) uuid.UUID {
	id := uuid.New()
	r.customers[id] = companyID
	return id
}

func (r *memoryRepo) addProduct(companyID uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	r.products[id] = product{companyID: companyID, name: name}
	return id
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Quote, int, error) {
	out := []Quote{}
	for _, q := range r.quotes {
		if q.CompanyID != companyID || (filter.Status != "" && q.Status != filter.Status) {
			continue
		}
		out = append(out, q)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*Quote, error) {
	q, ok := r.quotes[id]
	if !ok || q.CompanyID != companyID {
		return nil, shared.NotFound("quote")
	}
	q.Items = append([]document.Item(nil), q.Items...)
	return &q, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Quote, error) {
	return r.Get(ctx, companyID, id)
}

func (r *memoryRepo) NextNumber(ctx context.Context, companyID uuid.UUID, prefix string, at time.Time) (string, error) {
	key := companyID.String() + prefix + at.Format("200601")
	r.seq[key]++
	return document.FormatNumber(prefix, at, r.seq[key]), nil
}

func (r *memoryRepo) CustomerActive(ctx context.Context, companyID, partnerID uuid.UUID) (bool, error) {
	owner, ok := r.customers[partnerID]
	return ok && owner == companyID, nil
}

func (r *memoryRepo) ProductNames(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := map[uuid.UUID]string{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok && p.companyID == companyID {
			names[id] = p.name
		}
	}
	return names, nil
}

func (r *memoryRepo) Create(ctx context.Context, q *Quote) error {
	r.quotes[q.ID] = *q
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, q *Quote) error {
	if _, ok := r.quotes[q.ID]; !ok {
		return shared.NotFound("quote")
	}
	r.quotes[q.ID] = *q
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	if q, ok := r.quotes[id]; !ok || q.CompanyID != companyID {
		return shared.NotFound("quote")
	}
	delete(r.quotes, id)
	return nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, companyID, id uuid.UUID, status lifecycle.QuoteStatus, orderID *uuid.UUID) error {
	q, ok := r.quotes[id]
	if !ok || q.CompanyID != companyID {
		return shared.NotFound("quote")
	}
	q.Status = status
	if orderID != nil {
		q.OrderID = orderID
		q.OrderNumber = r.orders[*orderID].Number
	}
	r.quotes[id] = q
	return nil
}

func (r *memoryRepo) RecordStatus(ctx context.Context, change shared.StatusChange) error {
	r.history = append(r.history, change)
	return nil
}

func (r *memoryRepo) History(ctx context.Context, companyID, id uuid.UUID) ([]shared.StatusChange, error) {
	out := []shared.StatusChange{}
	for _, c := range r.history {
		if c.CompanyID == companyID && c.RefID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateOrder(ctx context.Context, o NewOrder) error {
	r.orders[o.ID] = o
	return nil
}

func (r *memoryRepo) ClaimIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) error {
	k := companyID.String() + key
	if r.keys[k] {
		return shared.ErrIdempotencyConflict
	}
	r.keys[k] = true
	return nil
}

func (r *memoryRepo) ExpireSent(ctx context.Context, now time.Time) ([]ExpiredQuote, error) {
	var out []ExpiredQuote
	for id, q := range r.quotes {
		if q.Expired(now) {
			q.Status = lifecycle.QuoteExpired
			r.quotes[id] = q
			out = append(out, ExpiredQuote{ID: id, CompanyID: q.CompanyID, Number: q.Number})
		}
	}
	return out, nil
}

func (r *memoryRepo) CompanyProfile(ctx context.Context, companyID uuid.UUID) (CompanyProfile, error) {
	return CompanyProfile{Name: "Gráfica Rápida Ltda", TradeName: "Gráfica Rápida", Document: "11222333000181"}, nil
}

type countingMetrics struct {
	statuses    map[string]int
	conversions int
}

func (m *countingMetrics) StatusChanged(module, status string) { m.statuses[module+":"+status]++ }
func (m *countingMetrics) QuoteConverted()                     { m.conversions++ }

var testNow = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

func newTestService(repo *memoryRepo) (*Service, *countingMetrics) {
	metrics := &countingMetrics{statuses: map[string]int{}}
	svc := NewService(repo, nil, metrics, nil)
	svc.now = func() time.Time { return testNow }
	return svc, metrics
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	repo     *memoryRepo
	svc      *Service
	metrics  *countingMetrics
	p        shared.Principal
	customer uuid.UUID
	product  uuid.UUID
}

func newFixture() fixture {
	repo := newMemoryRepo()
	svc, metrics := newTestService(repo)
	p := shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
	return fixture{
		repo:     repo,
		svc:      svc,
		metrics:  metrics,
		p:        p,
		customer: repo.addCustomer(p.CompanyID),
		product:  repo.addProduct(p.CompanyID, "Banner 1x2m"),
	}
}

func (f fixture) input() QuoteInput {
	return QuoteInput{
		PartnerID:    f.customer,
		DiscountType: pricing.Percentage,
		Discount:     dec("10"),
		Items: []document.ItemInput{
			{ProductID: &f.product, Quantity: dec("2"), UnitPrice: dec("10")},
		},
	}
}

func (f fixture) moveTo(t *testing.T, id uuid.UUID, statuses ...lifecycle.QuoteStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.svc.ChangeStatus(context.Background(), f.p, id, StatusInput{Status: s})
		require.NoError(t, err)
	}
}

func TestCreateQuote(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Create(context.Background(), f.p, f.input())
	require.NoError(t, err)

	assert.Equal(t, "ORC-2405-0001", q.Number)
	assert.Equal(t, lifecycle.QuoteDraft, q.Status)
	assert.Equal(t, "20", q.Subtotal.String())
	assert.Equal(t, "2", q.DiscountValue.String())
	assert.Equal(t, "18", q.Total.String())
	require.Len(t, q.Items, 1)
	assert.Equal(t, "Banner 1x2m", q.Items[0].Description)
	assert.Equal(t, 1, q.Items[0].Position)

	history, err := f.svc.History(context.Background(), f.p, q.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "DRAFT", history[0].ToStatus)
}

func TestCreateQuoteRejectsForeignParties(t *testing.T) {
	f := newFixture()
	other := uuid.New()

	in := f.input()
	in.PartnerID = f.repo.addCustomer(other)
	_, err := f.svc.Create(context.Background(), f.p, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in = f.input()
	foreign := f.repo.addProduct(other, "Adesivo")
	in.Items = []document.ItemInput{{ProductID: &foreign, Quantity: dec("1"), UnitPrice: dec("5")}}
	_, err = f.svc.Create(context.Background(), f.p, in)
	assert.ErrorIs(t, err, shared.ErrValidation)

	in = f.input()
	in.Items = []document.ItemInput{{Description: "  ", Quantity: dec("1"), UnitPrice: dec("5")}}
	_, err = f.svc.Create(context.Background(), f.p, in)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, f.repo.quotes)
}

func TestUpdateOnlyWhileDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, f.p, f.input())
	require.NoError(t, err)

	in := f.input()
	in.DiscountType = pricing.Fixed
	in.Discount = dec("50")
	updated, err := f.svc.Update(ctx, f.p, q.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "20", updated.DiscountValue.String(), "fixed discount is clamped to the subtotal")
	assert.True(t, updated.Total.IsZero())

	f.moveTo(t, q.ID, lifecycle.QuoteSent)
	_, err = f.svc.Update(ctx, f.p, q.ID, f.input())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, f.p, f.input())
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.p, q.ID, StatusInput{Status: lifecycle.QuoteApproved})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "from DRAFT to APPROVED")

	_, err = f.svc.ChangeStatus(ctx, f.p, q.ID, StatusInput{Status: lifecycle.QuoteConverted})
	assert.ErrorIs(t, err, shared.ErrValidation)

	got, err := f.svc.ChangeStatus(ctx, f.p, q.ID, StatusInput{Status: "sent", Note: "enviado por email"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.QuoteSent, got.Status)
	f.moveTo(t, q.ID, lifecycle.QuoteRejected, lifecycle.QuoteDraft)

	history, err := f.svc.History(ctx, f.p, q.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "DRAFT", history[1].FromStatus)
	assert.Equal(t, "enviado por email", history[1].Note)
	assert.Equal(t, 1, f.metrics.statuses["quotes:SENT"])
}

func TestConvertToOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, f.p, f.input())
	require.NoError(t, err)

	_, err = f.svc.ConvertToOrder(ctx, f.p, q.ID, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, f.repo.orders)

	f.moveTo(t, q.ID, lifecycle.QuoteSent, lifecycle.QuoteApproved)
	res, err := f.svc.ConvertToOrder(ctx, f.p, q.ID, "conv-1")
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, "OS-2405-0001", res.Order.Number)
	assert.Equal(t, lifecycle.OrderPending, res.Order.Status)
	assert.Equal(t, lifecycle.QuoteConverted, res.Quote.Status)
	require.NotNil(t, res.Quote.OrderID)
	assert.Equal(t, res.Order.ID, *res.Quote.OrderID)

	order := f.repo.orders[res.Order.ID]
	assert.Equal(t, q.ID, order.QuoteID)
	assert.Equal(t, "18", order.Total.String())
	require.Len(t, order.Items, 1)
	assert.NotEqual(t, q.Items[0].ID, order.Items[0].ID)
	assert.Equal(t, 1, f.metrics.conversions)

	replay, err := f.svc.ConvertToOrder(ctx, f.p, q.ID, "conv-1")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, res.Order.ID, replay.Order.ID)
	assert.Len(t, f.repo.orders, 1)

	_, err = f.svc.ConvertToOrder(ctx, f.p, q.ID, "conv-2")
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Len(t, f.repo.orders, 1)

	err = f.svc.Delete(ctx, f.p, q.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDuplicateAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	q, err := f.svc.Create(ctx, f.p, f.input())
	require.NoError(t, err)
	f.moveTo(t, q.ID, lifecycle.QuoteSent)

	dup, err := f.svc.Duplicate(ctx, f.p, q.ID)
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, dup.ID)
	assert.Equal(t, "ORC-2405-0002", dup.Number)
	assert.Equal(t, lifecycle.QuoteDraft, dup.Status)
	assert.True(t, q.Total.Equal(dup.Total))

	require.NoError(t, f.svc.Delete(ctx, f.p, dup.ID))
	_, err = f.svc.Get(ctx, f.p, dup.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.Get(ctx, shared.Principal{CompanyID: uuid.New()}, q.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestExpireOverdue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	past := testNow.Add(-48 * time.Hour)
	future := testNow.Add(48 * time.Hour)

	in := f.input()
	in.ValidUntil = &past
	overdue, err := f.svc.Create(ctx, f.p, in)
	require.NoError(t, err)
	f.moveTo(t, overdue.ID, lifecycle.QuoteSent)

	in.ValidUntil = &future
	current, err := f.svc.Create(ctx, f.p, in)
	require.NoError(t, err)
	f.moveTo(t, current.ID, lifecycle.QuoteSent)

	in.ValidUntil = &past
	draft, err := f.svc.Create(ctx, f.p, in)
	require.NoError(t, err)

	n, err := f.svc.ExpireOverdue(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, lifecycle.QuoteExpired, f.repo.quotes[overdue.ID].Status)
	assert.Equal(t, lifecycle.QuoteSent, f.repo.quotes[current.ID].Status)
	assert.Equal(t, lifecycle.QuoteDraft, f.repo.quotes[draft.ID].Status)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture()
	q, err := f.svc.Create(context.Background(), f.p, f.input())
	require.NoError(t, err)

	_, doc, err := f.svc.PDF(context.Background(), f.p, q.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "R$ 1.234,50", formatMoney(dec("1234.5")))
	assert.Equal(t, "R$ 0,00", formatMoney(decimal.Zero))
}

type allowAll struct{}

func (allowAll) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return shared.AllScopes(), nil
}

func TestQuoteHandler(t *testing.T) {
	f := newFixture()
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), f.p)))
		})
	})
	router.Route("/quotes", NewHandler(nil, f.svc, rbac.Middleware{Service: allowAll{}}).MountRoutes)

	body := `{"partnerId":"` + f.customer.String() + `","discountType":"PERCENTAGE","discount":10,
		"items":[{"productId":"` + f.product.String() + `","quantity":2,"unitPrice":10}]}`
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"total":"18"`)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/quotes", strings.NewReader(`{"partnerId":"`+f.customer.String()+`","items":[]}`)))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	var id uuid.UUID
	for k := range f.repo.quotes {
		id = k
	}
	f.moveTo(t, id, lifecycle.QuoteSent, lifecycle.QuoteApproved)

	convert := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/quotes/"+id.String()+"/convert-to-order", nil)
		req.Header.Set(IdempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	first := convert()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := convert()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), `"replayed":true`)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/quotes?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/quotes/"+id.String()+"/pdf", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/pdf", res.Header().Get("Content-Type"))
}
