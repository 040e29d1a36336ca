package orders

import (
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

type memoryRepo struct {
	orders    map[uuid.UUID]Order
	customers map[uuid.UUID]uuid.UUID
	users     map[uuid.UUID]uuid.UUID
	seq       map[string]int64
	history   []shared.StatusChange
	entries   []TimeEntry
	expenses  []Expense
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:    map[uuid.UUID]Order{},
		customers: map[uuid.UUID]uuid.UUID{},
		users:     map[uuid.UUID]uuid.UUID{},
		seq:       map[string]int64{},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Order, int, error) {
	out := []Order{}
	for _, o := range r.orders {
		if o.CompanyID == companyID && (filter.Status == "" || o.Status == filter.Status) {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, companyID, id uuid.UUID) (*Order, error) {
	o, ok := r.orders[id]
	if !ok || o.CompanyID != companyID {
		return nil, shared.NotFound("order")
	}
	o.Items = append([]document.Item(nil), o.Items...)
	return &o, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, companyID, id uuid.UUID) (*Order, error) {
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
	return map[uuid.UUID]string{}, nil
}

func (r *memoryRepo) UserActive(ctx context.Context, companyID, userID uuid.UUID) (bool, error) {
	owner, ok := r.users[userID]
	return ok && owner == companyID, nil
}

func (r *memoryRepo) Create(ctx context.Context, o *Order) error {
	r.orders[o.ID] = *o
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, o *Order) error {
	r.orders[o.ID] = *o
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	delete(r.orders, id)
	return nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, o *Order) error {
	r.orders[o.ID] = *o
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

func (r *memoryRepo) ListTimeEntries(ctx context.Context, companyID, orderID uuid.UUID) ([]TimeEntry, error) {
	out := []TimeEntry{}
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) AddTimeEntry(ctx context.Context, e *TimeEntry) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *memoryRepo) DeleteTimeEntry(ctx context.Context, companyID, orderID, id uuid.UUID) error {
	for i, e := range r.entries {
		if e.ID == id && e.OrderID == orderID && e.CompanyID == companyID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return shared.NotFound("time entry")
}

func (r *memoryRepo) ListExpenses(ctx context.Context, companyID, orderID uuid.UUID) ([]Expense, error) {
	out := []Expense{}
	for _, e := range r.expenses {
		if e.CompanyID == companyID && e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) AddExpense(ctx context.Context, e *Expense) error {
	r.expenses = append(r.expenses, *e)
	return nil
}

func (r *memoryRepo) DeleteExpense(ctx context.Context, companyID, orderID, id uuid.UUID) error {
	for i, e := range r.expenses {
		if e.ID == id && e.OrderID == orderID && e.CompanyID == companyID {
			r.expenses = append(r.expenses[:i], r.expenses[i+1:]...)
			return nil
		}
	}
	return shared.NotFound("expense")
}

type statusCounter map[string]int

func (c statusCounter) StatusChanged(module, status string) { c[module+":"+status]++ }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	repo     *memoryRepo
	svc      *Service
	metrics  statusCounter
	p        shared.Principal
	customer uuid.UUID
}

func newFixture() fixture {
	repo := newMemoryRepo()
	metrics := statusCounter{}
	svc := NewService(repo, nil, metrics, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) }
	p := shared.Principal{UserID: uuid.New(), CompanyID: uuid.New()}
	customer := uuid.New()
	repo.customers[customer] = p.CompanyID
	return fixture{repo: repo, svc: svc, metrics: metrics, p: p, customer: customer}
}

func (f fixture) input() OrderInput {
	return OrderInput{
		PartnerID:    f.customer,
		DiscountType: pricing.Percentage,
		Discount:     dec("10"),
		Items:        []document.ItemInput{{Description: "Cartão de visita 4x4", Quantity: dec("2"), UnitPrice: dec("10")}},
	}
}

func (f fixture) create(t *testing.T) *Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), f.p, f.input())
	require.NoError(t, err)
	return o
}

func (f fixture) moveTo(t *testing.T, id uuid.UUID, statuses ...lifecycle.OrderStatus) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.svc.ChangeStatus(context.Background(), f.p, id, StatusInput{Status: s})
		require.NoError(t, err)
	}
}

func TestCreateOrderTotals(t *testing.T) {
	f := newFixture()
	o := f.create(t)

	assert.Equal(t, "OS-2406-0001", o.Number)
	assert.Equal(t, lifecycle.OrderPending, o.Status)
	assert.Equal(t, "20", o.Subtotal.String())
	assert.Equal(t, "2", o.DiscountValue.String())
	assert.Equal(t, "18", o.Total.String())

	in := f.input()
	in.PartnerID = uuid.New()
	_, err := f.svc.Create(context.Background(), f.p, in)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestOrderTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.create(t)

	_, err := f.svc.ChangeStatus(ctx, f.p, o.ID, StatusInput{Status: lifecycle.OrderCompleted})
	assert.ErrorIs(t, err, shared.ErrValidation)

	got, err := f.svc.ChangeStatus(ctx, f.p, o.ID, StatusInput{Status: "in_progress"})
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	started := *got.StartedAt

	f.moveTo(t, o.ID, lifecycle.OrderPaused)
	_, err = f.svc.Update(ctx, f.p, o.ID, f.input())
	assert.ErrorIs(t, err, shared.ErrValidation, "paused orders are read-only")

	f.moveTo(t, o.ID, lifecycle.OrderInProgress, lifecycle.OrderCompleted)
	done, err := f.svc.Get(ctx, f.p, o.ID)
	require.NoError(t, err)
	assert.Equal(t, started, *done.StartedAt)
	assert.NotNil(t, done.CompletedAt)

	_, err = f.svc.ChangeStatus(ctx, f.p, o.ID, StatusInput{Status: lifecycle.OrderCancelled})
	assert.ErrorIs(t, err, shared.ErrValidation, "completed is terminal")

	history, err := f.svc.History(ctx, f.p, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 5)
	assert.Equal(t, 2, f.metrics["orders:IN_PROGRESS"])
}

func TestUpdateWhileInProgress(t *testing.T) {
	f := newFixture()
	o := f.create(t)
	f.moveTo(t, o.ID, lifecycle.OrderInProgress)

	in := f.input()
	in.Items = append(in.Items, document.ItemInput{Description: "Acabamento", Quantity: dec("1"), UnitPrice: dec("5.55")})
	in.DiscountType = ""
	got, err := f.svc.Update(context.Background(), f.p, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "25.55", got.Total.String())
	assert.True(t, got.Discount.IsZero())
	assert.Len(t, got.Items, 2)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	started := f.create(t)
	f.moveTo(t, started.ID, lifecycle.OrderInProgress)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.p, started.ID), shared.ErrConflict)

	fromQuote := f.create(t)
	quoteID := uuid.New()
	stored := f.repo.orders[fromQuote.ID]
	stored.QuoteID = &quoteID
	f.repo.orders[fromQuote.ID] = stored
	assert.ErrorIs(t, f.svc.Delete(ctx, f.p, fromQuote.ID), shared.ErrConflict)

	pending := f.create(t)
	require.NoError(t, f.svc.Delete(ctx, f.p, pending.ID))
	_, err := f.svc.Get(ctx, f.p, pending.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDuplicateOrder(t *testing.T) {
	f := newFixture()
	o := f.create(t)
	f.moveTo(t, o.ID, lifecycle.OrderInProgress, lifecycle.OrderCancelled)

	dup, err := f.svc.Duplicate(context.Background(), f.p, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "OS-2406-0002", dup.Number)
	assert.Equal(t, lifecycle.OrderPending, dup.Status)
	assert.Nil(t, dup.StartedAt)
	assert.True(t, o.Total.Equal(dup.Total))
}

func TestTrackingAndSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o := f.create(t)

	_, err := f.svc.AddTimeEntry(ctx, f.p, o.ID, TimeEntryInput{Hours: dec("1.5"), HourlyRate: dec("4")})
	require.NoError(t, err)
	operator := uuid.New()
	f.repo.users[operator] = f.p.CompanyID
	entry, err := f.svc.AddTimeEntry(ctx, f.p, o.ID, TimeEntryInput{UserID: &operator, Hours: dec("0.5"), HourlyRate: dec("6")})
	require.NoError(t, err)
	assert.Equal(t, operator, *entry.UserID)
	assert.Equal(t, "3", entry.Cost.String())

	_, err = f.svc.AddTimeEntry(ctx, f.p, o.ID, TimeEntryInput{UserID: ptr(uuid.New()), Hours: dec("1")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.AddExpense(ctx, f.p, o.ID, ExpenseInput{Description: "Laminação terceirizada", Amount: dec("2.5")})
	require.NoError(t, err)

	s, err := f.svc.Summary(ctx, f.p, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", s.Hours.String())
	assert.Equal(t, "9", s.LabourCost.String())
	assert.Equal(t, "2.5", s.Expenses.String())
	assert.Equal(t, "6.5", s.Margin.String())
	assert.Equal(t, "36.11", s.MarginPercent.String())
	assert.Equal(t, 2, s.TimeEntries)
	assert.Equal(t, 1, s.ExpenseCount)

	require.NoError(t, f.svc.DeleteTimeEntry(ctx, f.p, o.ID, entry.ID))
	assert.ErrorIs(t, f.svc.DeleteTimeEntry(ctx, f.p, o.ID, entry.ID), shared.ErrNotFound)

	f.moveTo(t, o.ID, lifecycle.OrderCancelled)
	_, err = f.svc.AddExpense(ctx, f.p, o.ID, ExpenseInput{Description: "Frete", Amount: dec("1")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSummarizeNegativeMargin(t *testing.T) {
	o := &Order{Totals: document.Totals{Total: dec("10")}}
	s := Summarize(o, []TimeEntry{{Hours: dec("2"), HourlyRate: dec("7.5")}}, nil)
	assert.Equal(t, "-5", s.Margin.String())
	assert.Equal(t, "-50", s.MarginPercent.String())

	s = Summarize(&Order{}, nil, nil)
	assert.True(t, s.MarginPercent.IsZero())
}

func ptr[T any](v T) *T { return &v }

type allowAll struct{}

func (allowAll) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return shared.AllScopes(), nil
}

type viewOnly struct{}

func (viewOnly) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	return []string{shared.PermOrdersView}, nil
}

func newRouter(f fixture, checker rbac.PermissionChecker) chi.Router {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), f.p)))
		})
	})
	router.Route("/orders", NewHandler(nil, f.svc, rbac.Middleware{Service: checker}).MountRoutes)
	return router
}

func TestOrderHandler(t *testing.T) {
	f := newFixture()
	router := newRouter(f, allowAll{})

	body := `{"partnerId":"` + f.customer.String() + `","discountType":"PERCENTAGE","discount":10,
		"items":[{"description":"Flyer A5","quantity":2,"unitPrice":10}]}`
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"subtotal":"20"`)
	assert.Contains(t, res.Body.String(), `"discountValue":"2"`)
	assert.Contains(t, res.Body.String(), `"total":"18"`)

	var id uuid.UUID
	for k := range f.repo.orders {
		id = k
	}

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/orders/"+id.String()+"/time-entries", strings.NewReader(`{"hours":30}`)))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPatch, "/orders/"+id.String()+"/status", strings.NewReader(`{"status":"COMPLETED"}`)))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "from PENDING to COMPLETED")

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/orders/"+id.String()+"/expenses/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/orders/"+id.String()+"/summary", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"margin":"18"`)
}

func TestOrderHandlerForbidsTrackingWithoutPermission(t *testing.T) {
	f := newFixture()
	o := f.create(t)
	router := newRouter(f, viewOnly{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/expenses", strings.NewReader(`{"description":"x","amount":1}`)))
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/orders/"+o.ID.String()+"/expenses", nil))
	assert.Equal(t, http.StatusOK, res.Code)
}
