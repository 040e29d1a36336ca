package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/sales/pricing"
)

// OrderInput is the create and update payload.
type OrderInput struct {
	PartnerID    uuid.UUID            `json:"partnerId" validate:"required"`
	DueDate      *time.Time           `json:"dueDate"`
	Notes        string               `json:"notes" validate:"max=2000"`
	DiscountType pricing.DiscountType `json:"discountType" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	Discount     decimal.Decimal      `json:"discount" validate:"gte=0"`
	Items        []document.ItemInput `json:"items" validate:"required,min=1,dive"`
}

func (in *OrderInput) normalize() {
	in.Notes = strings.TrimSpace(in.Notes)
	if in.DiscountType == "" {
		in.Discount = decimal.Zero
	}
}

// StatusInput is the PATCH /{id}/status payload.
type StatusInput struct {
	Status lifecycle.OrderStatus `json:"status" validate:"required"`
	Note   string                `json:"note" validate:"max=500"`
}

// TimeEntryInput books hours on an order. UserID defaults to the caller.
type TimeEntryInput struct {
	UserID      *uuid.UUID      `json:"userId"`
	Description string          `json:"description" validate:"max=255"`
	Hours       decimal.Decimal `json:"hours" validate:"gt=0,lte=24"`
	HourlyRate  decimal.Decimal `json:"hourlyRate" validate:"gte=0"`
	WorkedAt    *time.Time      `json:"workedAt"`
}

// ExpenseInput records a direct cost on an order.
type ExpenseInput struct {
	Description string          `json:"description" validate:"required,max=255"`
	Category    string          `json:"category" validate:"max=60"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	IncurredAt  *time.Time      `json:"incurredAt"`
}
