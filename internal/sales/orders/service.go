package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// MetricsPort receives order events.
type MetricsPort interface {
	StatusChanged(module, status string)
}

// Service handles order business logic.
type Service struct {
	repo    Repository
	audit   shared.Auditor
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds a Service. audit and metrics may be nil.
func NewService(repo Repository, audit shared.Auditor, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns a page of orders without items.
func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter) ([]Order, shared.Pagination, error) {
	orders, total, err := s.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list orders: %w", err)
	}
	return orders, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*Order, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Create stores a new PENDING order.
func (s *Service) Create(ctx context.Context, p shared.Principal, in OrderInput) (*Order, error) {
	in.normalize()
	now := s.now()
	var created *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := checkParties(ctx, repo, p.CompanyID, &in); err != nil {
			return err
		}
		number, err := repo.NextNumber(ctx, p.CompanyID, document.PrefixOrder, now)
		if err != nil {
			return err
		}
		items, totals := document.Price(in.Items, in.DiscountType, in.Discount)
		o := &Order{
			ID:        uuid.New(),
			CompanyID: p.CompanyID,
			Number:    number,
			PartnerID: in.PartnerID,
			Status:    lifecycle.OrderPending,
			DueDate:   in.DueDate,
			Notes:     in.Notes,
			Totals:    totals,
			Items:     items,
			CreatedBy: actor(p),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := repo.RecordStatus(ctx, shared.StatusChange{
			CompanyID: p.CompanyID, Module: HistoryModule, RefID: o.ID,
			ToStatus: string(o.Status), ActorID: p.UserID, At: now,
		}); err != nil {
			return fmt.Errorf("record order history: %w", err)
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, created.ID, shared.AuditCreate, map[string]any{"number": created.Number, "total": created.Total.String()})
	return s.reload(ctx, p, created)
}

// Update replaces the content of an order that is PENDING or IN_PROGRESS.
func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in OrderInput) (*Order, error) {
	in.normalize()
	var updated *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if !lifecycle.OrderEditable(o.Status) {
			return shared.Validation("order %s cannot be edited while %s", o.Number, o.Status)
		}
		if err := checkParties(ctx, repo, p.CompanyID, &in); err != nil {
			return err
		}
		items, totals := document.Price(in.Items, in.DiscountType, in.Discount)
		o.PartnerID = in.PartnerID
		o.DueDate = in.DueDate
		o.Notes = in.Notes
		o.Totals = totals
		o.Items = items
		o.UpdatedAt = s.now()
		if err := repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, id, shared.AuditUpdate, map[string]any{"total": updated.Total.String()})
	return s.reload(ctx, p, updated)
}

// Delete removes a PENDING or CANCELLED order that was not created from a
// quote.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if o.QuoteID != nil {
			return shared.Conflict("order %s was created from quote %s, cancel it instead", o.Number, o.QuoteNumber)
		}
		if o.Status != lifecycle.OrderPending && o.Status != lifecycle.OrderCancelled {
			return shared.Conflict("order %s cannot be deleted while %s", o.Number, o.Status)
		}
		return repo.Delete(ctx, p.CompanyID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, id, shared.AuditDelete, nil)
	return nil
}

// ChangeStatus moves an order along the transition table and stamps the
// start, completion and cancellation times.
func (s *Service) ChangeStatus(ctx context.Context, p shared.Principal, id uuid.UUID, in StatusInput) (*Order, error) {
	to := lifecycle.OrderStatus(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	var from lifecycle.OrderStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		o, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if err := lifecycle.Orders.Check(o.Status, to); err != nil {
			return err
		}
		now := s.now()
		from = o.Status
		o.Status = to
		o.UpdatedAt = now
		switch to {
		case lifecycle.OrderInProgress:
			if o.StartedAt == nil {
				o.StartedAt = &now
			}
		case lifecycle.OrderCompleted:
			o.CompletedAt = &now
		case lifecycle.OrderCancelled:
			o.CancelledAt = &now
		}
		if err := repo.SetStatus(ctx, o); err != nil {
			return fmt.Errorf("set order status: %w", err)
		}
		return repo.RecordStatus(ctx, shared.StatusChange{
			CompanyID: p.CompanyID, Module: HistoryModule, RefID: id,
			FromStatus: string(from), ToStatus: string(to), ActorID: p.UserID, Note: strings.TrimSpace(in.Note), At: now,
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StatusChanged(HistoryModule, string(to))
	}
	s.record(ctx, p, id, shared.AuditStatus, map[string]any{"from": from, "to": to})
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Duplicate copies an order into a new PENDING order without its quote
// link or tracking records.
func (s *Service) Duplicate(ctx context.Context, p shared.Principal, id uuid.UUID) (*Order, error) {
	src, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, p, OrderInput{
		PartnerID:    src.PartnerID,
		Notes:        src.Notes,
		DiscountType: src.DiscountType,
		Discount:     src.Discount,
		Items:        document.Inputs(src.Items),
	})
}

// History returns the status changes of an order, oldest first.
func (s *Service) History(ctx context.Context, p shared.Principal, id uuid.UUID) ([]shared.StatusChange, error) {
	if _, err := s.repo.Get(ctx, p.CompanyID, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, p.CompanyID, id)
}

// TimeEntries lists the labour booked on an order.
func (s *Service) TimeEntries(ctx context.Context, p shared.Principal, orderID uuid.UUID) ([]TimeEntry, error) {
	if _, err := s.repo.Get(ctx, p.CompanyID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListTimeEntries(ctx, p.CompanyID, orderID)
}

// AddTimeEntry books hours on an order that is not cancelled.
func (s *Service) AddTimeEntry(ctx context.Context, p shared.Principal, orderID uuid.UUID, in TimeEntryInput) (*TimeEntry, error) {
	o, err := s.trackable(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	userID := actor(p)
	if in.UserID != nil {
		ok, err := s.repo.UserActive(ctx, p.CompanyID, *in.UserID)
		if err != nil {
			return nil, fmt.Errorf("check user: %w", err)
		}
		if !ok {
			return nil, shared.Validation("userId must reference an active user")
		}
		userID = in.UserID
	}
	now := s.now()
	e := &TimeEntry{
		ID:          uuid.New(),
		CompanyID:   p.CompanyID,
		OrderID:     o.ID,
		UserID:      userID,
		Description: strings.TrimSpace(in.Description),
		Hours:       in.Hours,
		HourlyRate:  in.HourlyRate,
		Cost:        LabourCost(in.Hours, in.HourlyRate),
		WorkedAt:    now,
		CreatedAt:   now,
	}
	if in.WorkedAt != nil {
		e.WorkedAt = in.WorkedAt.UTC()
	}
	if err := s.repo.AddTimeEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("add time entry: %w", err)
	}
	s.record(ctx, p, o.ID, shared.AuditUpdate, map[string]any{"timeEntry": e.ID, "hours": e.Hours.String()})
	return e, nil
}

// DeleteTimeEntry removes a time entry of an order that is not cancelled.
func (s *Service) DeleteTimeEntry(ctx context.Context, p shared.Principal, orderID, entryID uuid.UUID) error {
	if _, err := s.trackable(ctx, p, orderID); err != nil {
		return err
	}
	if err := s.repo.DeleteTimeEntry(ctx, p.CompanyID, orderID, entryID); err != nil {
		return err
	}
	s.record(ctx, p, orderID, shared.AuditUpdate, map[string]any{"deletedTimeEntry": entryID})
	return nil
}

// Expenses lists the direct costs of an order.
func (s *Service) Expenses(ctx context.Context, p shared.Principal, orderID uuid.UUID) ([]Expense, error) {
	if _, err := s.repo.Get(ctx, p.CompanyID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, p.CompanyID, orderID)
}

// AddExpense records a direct cost on an order that is not cancelled.
func (s *Service) AddExpense(ctx context.Context, p shared.Principal, orderID uuid.UUID, in ExpenseInput) (*Expense, error) {
	o, err := s.trackable(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	e := &Expense{
		ID:          uuid.New(),
		CompanyID:   p.CompanyID,
		OrderID:     o.ID,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount.Round(2),
		IncurredAt:  now,
		CreatedBy:   actor(p),
		CreatedAt:   now,
	}
	if e.Description == "" {
		return nil, shared.Validation("description is required")
	}
	if in.IncurredAt != nil {
		e.IncurredAt = in.IncurredAt.UTC()
	}
	if err := s.repo.AddExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("add expense: %w", err)
	}
	s.record(ctx, p, o.ID, shared.AuditUpdate, map[string]any{"expense": e.ID, "amount": e.Amount.String()})
	return e, nil
}

// DeleteExpense removes an expense of an order that is not cancelled.
func (s *Service) DeleteExpense(ctx context.Context, p shared.Principal, orderID, expenseID uuid.UUID) error {
	if _, err := s.trackable(ctx, p, orderID); err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, p.CompanyID, orderID, expenseID); err != nil {
		return err
	}
	s.record(ctx, p, orderID, shared.AuditUpdate, map[string]any{"deletedExpense": expenseID})
	return nil
}

// Summary returns hours, labour cost, expenses and margin of an order.
func (s *Service) Summary(ctx context.Context, p shared.Principal, orderID uuid.UUID) (Summary, error) {
	o, err := s.repo.Get(ctx, p.CompanyID, orderID)
	if err != nil {
		return Summary{}, err
	}
	entries, err := s.repo.ListTimeEntries(ctx, p.CompanyID, orderID)
	if err != nil {
		return Summary{}, fmt.Errorf("list time entries: %w", err)
	}
	expenses, err := s.repo.ListExpenses(ctx, p.CompanyID, orderID)
	if err != nil {
		return Summary{}, fmt.Errorf("list expenses: %w", err)
	}
	return Summarize(o, entries, expenses), nil
}

func (s *Service) trackable(ctx context.Context, p shared.Principal, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.Get(ctx, p.CompanyID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == lifecycle.OrderCancelled {
		return nil, shared.Validation("order %s is cancelled", o.Number)
	}
	return o, nil
}

func (s *Service) reload(ctx context.Context, p shared.Principal, o *Order) (*Order, error) {
	fresh, err := s.repo.Get(ctx, p.CompanyID, o.ID)
	if err != nil {
		s.logger.Warn("reload order", slog.String("order_id", o.ID.String()), slog.Any("error", err))
		return o, nil
	}
	return fresh, nil
}

func (s *Service) record(ctx context.Context, p shared.Principal, id uuid.UUID, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: p.CompanyID,
		ActorID:   p.UserID,
		Action:    action,
		Entity:    "order",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit order", slog.String("action", action), slog.Any("error", err))
	}
}

func checkParties(ctx context.Context, repo Repository, companyID uuid.UUID, in *OrderInput) error {
	ok, err := repo.CustomerActive(ctx, companyID, in.PartnerID)
	if err != nil {
		return fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return shared.Validation("partnerId must reference an active customer")
	}
	names, err := repo.ProductNames(ctx, companyID, document.ProductIDs(in.Items))
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	return document.ResolveItems(in.Items, names)
}

func actor(p shared.Principal) *uuid.UUID {
	if p.UserID == uuid.Nil {
		return nil
	}
	id := p.UserID
	return &id
}
