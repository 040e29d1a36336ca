package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// MetricsPort receives quote events.
type MetricsPort interface {
	StatusChanged(module, status string)
	QuoteConverted()
}

// Service handles quote business logic.
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

// List returns a page of quotes without items.
func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter) ([]Quote, shared.Pagination, error) {
	quotes, total, err := s.repo.List(ctx, p.CompanyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns a quote with its items.
func (s *Service) Get(ctx context.Context, p shared.Principal, id uuid.UUID) (*Quote, error) {
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Create stores a new DRAFT quote with the next number of the month.
func (s *Service) Create(ctx context.Context, p shared.Principal, in QuoteInput) (*Quote, error) {
	in.normalize()
	now := s.now()
	var created *Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := checkParties(ctx, repo, p.CompanyID, &in); err != nil {
			return err
		}
		number, err := repo.NextNumber(ctx, p.CompanyID, document.PrefixQuote, now)
		if err != nil {
			return err
		}
		items, totals := document.Price(in.Items, in.DiscountType, in.Discount)
		q := &Quote{
			ID:         uuid.New(),
			CompanyID:  p.CompanyID,
			Number:     number,
			PartnerID:  in.PartnerID,
			Status:     lifecycle.QuoteDraft,
			ValidUntil: in.ValidUntil,
			Notes:      in.Notes,
			Totals:     totals,
			Items:      items,
			CreatedBy:  actor(p),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.Create(ctx, q); err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		if err := repo.RecordStatus(ctx, shared.StatusChange{
			CompanyID: p.CompanyID, Module: HistoryModule, RefID: q.ID,
			ToStatus: string(q.Status), ActorID: p.UserID, At: now,
		}); err != nil {
			return fmt.Errorf("record quote history: %w", err)
		}
		created = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, created.ID, shared.AuditCreate, map[string]any{"number": created.Number, "total": created.Total.String()})
	return s.reload(ctx, p, created)
}

// Update replaces partner, validity, notes, discount and items of a DRAFT
// quote and recomputes its totals.
func (s *Service) Update(ctx context.Context, p shared.Principal, id uuid.UUID, in QuoteInput) (*Quote, error) {
	in.normalize()
	var updated *Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if !lifecycle.QuoteEditable(q.Status) {
			return shared.Validation("quote %s cannot be edited while %s", q.Number, q.Status)
		}
		if err := checkParties(ctx, repo, p.CompanyID, &in); err != nil {
			return err
		}
		items, totals := document.Price(in.Items, in.DiscountType, in.Discount)
		q.PartnerID = in.PartnerID
		q.ValidUntil = in.ValidUntil
		q.Notes = in.Notes
		q.Totals = totals
		q.Items = items
		q.UpdatedAt = s.now()
		if err := repo.Update(ctx, q); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, p, id, shared.AuditUpdate, map[string]any{"total": updated.Total.String()})
	return s.reload(ctx, p, updated)
}

// Delete removes a quote that was not converted into an order.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if q.Status == lifecycle.QuoteConverted {
			return shared.Conflict("quote %s was converted into an order and cannot be deleted", q.Number)
		}
		return repo.Delete(ctx, p.CompanyID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, p, id, shared.AuditDelete, nil)
	return nil
}

// ChangeStatus moves a quote along the transition table. CONVERTED is only
// reachable through ConvertToOrder.
func (s *Service) ChangeStatus(ctx context.Context, p shared.Principal, id uuid.UUID, in StatusInput) (*Quote, error) {
	in.Status = lifecycle.QuoteStatus(strings.ToUpper(strings.TrimSpace(string(in.Status))))
	if in.Status == lifecycle.QuoteConverted {
		return nil, shared.Validation("use convert-to-order to convert a quote")
	}
	var from lifecycle.QuoteStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if err := lifecycle.Quotes.Check(q.Status, in.Status); err != nil {
			return err
		}
		from = q.Status
		if err := repo.SetStatus(ctx, p.CompanyID, id, in.Status, nil); err != nil {
			return fmt.Errorf("set quote status: %w", err)
		}
		return repo.RecordStatus(ctx, shared.StatusChange{
			CompanyID: p.CompanyID, Module: HistoryModule, RefID: id,
			FromStatus: string(from), ToStatus: string(in.Status), ActorID: p.UserID, Note: strings.TrimSpace(in.Note), At: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StatusChanged(HistoryModule, string(in.Status))
	}
	s.record(ctx, p, id, shared.AuditStatus, map[string]any{"from": from, "to": in.Status})
	return s.repo.Get(ctx, p.CompanyID, id)
}

// Duplicate copies a quote into a new DRAFT with a fresh number.
func (s *Service) Duplicate(ctx context.Context, p shared.Principal, id uuid.UUID) (*Quote, error) {
	src, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, p, QuoteInput{
		PartnerID:    src.PartnerID,
		Notes:        src.Notes,
		DiscountType: src.DiscountType,
		Discount:     src.Discount,
		Items:        document.Inputs(src.Items),
	})
}

// ConvertToOrder turns an APPROVED quote into a PENDING order in one
// transaction. A repeated call with the same idempotency key returns the
// order of the first call.
func (s *Service) ConvertToOrder(ctx context.Context, p shared.Principal, id uuid.UUID, idempotencyKey string) (*ConvertResult, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	now := s.now()
	var order OrderRef
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if idempotencyKey != "" {
			if err := repo.ClaimIdempotencyKey(ctx, p.CompanyID, idempotencyKey); err != nil {
				return err
			}
		}
		q, err := repo.GetForUpdate(ctx, p.CompanyID, id)
		if err != nil {
			return err
		}
		if q.Status != lifecycle.QuoteApproved {
			return shared.Validation("only APPROVED quotes can be converted, quote %s is %s", q.Number, q.Status)
		}
		number, err := repo.NextNumber(ctx, p.CompanyID, document.PrefixOrder, now)
		if err != nil {
			return err
		}
		items, totals := document.Price(document.Inputs(q.Items), q.DiscountType, q.Discount)
		o := NewOrder{
			ID:        uuid.New(),
			CompanyID: p.CompanyID,
			Number:    number,
			PartnerID: q.PartnerID,
			QuoteID:   q.ID,
			Notes:     q.Notes,
			Totals:    totals,
			Items:     items,
			CreatedBy: actor(p),
			CreatedAt: now,
		}
		if err := repo.CreateOrder(ctx, o); err != nil {
			return err
		}
		if err := repo.SetStatus(ctx, p.CompanyID, id, lifecycle.QuoteConverted, &o.ID); err != nil {
			return fmt.Errorf("mark quote converted: %w", err)
		}
		if err := repo.RecordStatus(ctx, shared.StatusChange{
			CompanyID: p.CompanyID, Module: HistoryModule, RefID: id,
			FromStatus: string(q.Status), ToStatus: string(lifecycle.QuoteConverted), ActorID: p.UserID,
			Note: "converted into order " + number, At: now,
		}); err != nil {
			return fmt.Errorf("record quote history: %w", err)
		}
		order = OrderRef{ID: o.ID, Number: o.Number, Status: lifecycle.OrderPending}
		return nil
	})
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return s.replay(ctx, p, id)
	}
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.QuoteConverted()
		s.metrics.StatusChanged(HistoryModule, string(lifecycle.QuoteConverted))
	}
	s.record(ctx, p, id, shared.AuditStatus, map[string]any{"to": lifecycle.QuoteConverted, "orderId": order.ID, "orderNumber": order.Number})
	q, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	return &ConvertResult{Quote: q, Order: order}, nil
}

// replay answers a conversion whose idempotency key was already used.
func (s *Service) replay(ctx context.Context, p shared.Principal, id uuid.UUID) (*ConvertResult, error) {
	q, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if q.Status != lifecycle.QuoteConverted || q.OrderID == nil {
		return nil, shared.Conflict("idempotency key was already used for another request")
	}
	return &ConvertResult{
		Quote:    q,
		Order:    OrderRef{ID: *q.OrderID, Number: q.OrderNumber, Status: lifecycle.OrderPending},
		Replayed: true,
	}, nil
}

// History returns the status changes of a quote, oldest first.
func (s *Service) History(ctx context.Context, p shared.Principal, id uuid.UUID) ([]shared.StatusChange, error) {
	if _, err := s.repo.Get(ctx, p.CompanyID, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, p.CompanyID, id)
}

// PDF renders a quote for the customer.
func (s *Service) PDF(ctx context.Context, p shared.Principal, id uuid.UUID) (*Quote, []byte, error) {
	q, err := s.repo.Get(ctx, p.CompanyID, id)
	if err != nil {
		return nil, nil, err
	}
	company, err := s.repo.CompanyProfile(ctx, p.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := RenderPDF(q, company)
	if err != nil {
		return nil, nil, fmt.Errorf("render quote pdf: %w", err)
	}
	return q, doc, nil
}

// ExpireOverdue moves SENT quotes past their validity to EXPIRED across all
// companies and returns how many changed.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	var expired []ExpiredQuote
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if expired, err = repo.ExpireSent(ctx, now); err != nil {
			return fmt.Errorf("expire quotes: %w", err)
		}
		for _, e := range expired {
			if err := repo.RecordStatus(ctx, shared.StatusChange{
				CompanyID: e.CompanyID, Module: HistoryModule, RefID: e.ID,
				FromStatus: string(lifecycle.QuoteSent), ToStatus: string(lifecycle.QuoteExpired),
				Note: "validity ended", At: now,
			}); err != nil {
				return fmt.Errorf("record quote history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, e := range expired {
		if s.metrics != nil {
			s.metrics.StatusChanged(HistoryModule, string(lifecycle.QuoteExpired))
		}
		s.logger.Info("quote expired", slog.String("quote_id", e.ID.String()), slog.String("number", e.Number))
	}
	return len(expired), nil
}

func (s *Service) reload(ctx context.Context, p shared.Principal, q *Quote) (*Quote, error) {
	fresh, err := s.repo.Get(ctx, p.CompanyID, q.ID)
	if err != nil {
		s.logger.Warn("reload quote", slog.String("quote_id", q.ID.String()), slog.Any("error", err))
		return q, nil
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
		Entity:    "quote",
		EntityID:  id.String(),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit quote", slog.String("action", action), slog.Any("error", err))
	}
}

// checkParties validates the customer and the referenced products of in and
// fills empty item descriptions.
func checkParties(ctx context.Context, repo Repository, companyID uuid.UUID, in *QuoteInput) error {
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
