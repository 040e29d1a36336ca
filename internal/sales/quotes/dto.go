package quotes

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/sales/document"
	"github.com/alvarodevdoo/erp/internal/sales/lifecycle"
	"github.com/alvarodevdoo/erp/internal/sales/pricing"
)

// QuoteInput is the create and update payload.
type QuoteInput struct {
	PartnerID    uuid.UUID            `json:"partnerId" validate:"required"`
	ValidUntil   *time.Time           `json:"validUntil"`
	Notes        string               `json:"notes" validate:"max=2000"`
	DiscountType pricing.DiscountType `json:"discountType" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	Discount     decimal.Decimal      `json:"discount" validate:"gte=0"`
	Items        []document.ItemInput `json:"items" validate:"required,min=1,dive"`
}

func (in *QuoteInput) normalize() {
	in.Notes = strings.TrimSpace(in.Notes)
	if in.DiscountType == "" {
		in.Discount = decimal.Zero
	}
}

// StatusInput is the PATCH /{id}/status payload.
type StatusInput struct {
	Status lifecycle.QuoteStatus `json:"status" validate:"required"`
	Note   string                `json:"note" validate:"max=500"`
}
