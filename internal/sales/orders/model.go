package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/shared"
)

// HistoryModule names orders in document_status_history.
const HistoryModule = "orders"

// Order is a production job for a customer.
type Order struct {
	ID          uuid.UUID             `json:"id"`
	CompanyID   uuid.UUID             `json:"companyId"`
	Number      string                `json:"number"`
	PartnerID   uuid.UUID             `json:"partnerId"`
	PartnerName string                `json:"partnerName"`
	QuoteID     *uuid.UUID            `json:"quoteId"`
	QuoteNumber string                `json:"quoteNumber,omitempty"`
	Status      lifecycle.OrderStatus `json:"status"`
	DueDate     *time.Time            `json:"dueDate"`
	Notes       string                `json:"notes"`
	document.Totals
	Items       []document.Item `json:"items"`
	CreatedBy   *uuid.UUID      `json:"createdBy"`
	StartedAt   *time.Time      `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt"`
	CancelledAt *time.Time      `json:"cancelledAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Overdue reports whether an open order passed its due date at now.
func (o Order) Overdue(now time.Time) bool {
	return o.DueDate != nil && lifecycle.OrderOpen(o.Status) && o.DueDate.Before(now)
}

// ListFilter narrows order listings.
type ListFilter struct {
	shared.ListFilters
	Status    lifecycle.OrderStatus
	PartnerID *uuid.UUID
	QuoteID   *uuid.UUID
}

// TimeEntry is labour booked against an order.
type TimeEntry struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   uuid.UUID       `json:"companyId"`
	OrderID     uuid.UUID       `json:"orderId"`
	UserID      *uuid.UUID      `json:"userId"`
	UserName    string          `json:"userName,omitempty"`
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
	HourlyRate  decimal.Decimal `json:"hourlyRate"`
	Cost        decimal.Decimal `json:"cost"`
	WorkedAt    time.Time       `json:"workedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Expense is a direct cost of an order, such as outsourced finishing.
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	CompanyID   uuid.UUID       `json:"companyId"`
	OrderID     uuid.UUID       `json:"orderId"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredAt  time.Time       `json:"incurredAt"`
	CreatedBy   *uuid.UUID      `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Summary is the profitability of an order.
type Summary struct {
	OrderID       uuid.UUID             `json:"orderId"`
	Number        string                `json:"number"`
	Status        lifecycle.OrderStatus `json:"status"`
	Total         decimal.Decimal       `json:"total"`
	Hours         decimal.Decimal       `json:"hours"`
	LabourCost    decimal.Decimal       `json:"labourCost"`
	Expenses      decimal.Decimal       `json:"expenses"`
	Margin        decimal.Decimal       `json:"margin"`
	MarginPercent decimal.Decimal       `json:"marginPercent"`
	TimeEntries   int                   `json:"timeEntries"`
	ExpenseCount  int                   `json:"expenseCount"`
}
