// Package document holds what quotes and orders share: priced items,
// document numbers and party checks.
package document

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/sales/pricing"
)

// ItemInput is one line of a quote or order payload.
type ItemInput struct {
	ProductID    *uuid.UUID           `json:"productId"`
	Description  string               `json:"description" validate:"max=255"`
	Quantity     decimal.Decimal      `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal      `json:"unitPrice" validate:"gte=0"`
	DiscountType pricing.DiscountType `json:"discountType" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	Discount     decimal.Decimal      `json:"discount" validate:"gte=0"`
}

// Item is a stored, priced line.
type Item struct {
	ID            uuid.UUID            `json:"id"`
	ProductID     *uuid.UUID           `json:"productId"`
	Description   string               `json:"description"`
	Quantity      decimal.Decimal      `json:"quantity"`
	UnitPrice     decimal.Decimal      `json:"unitPrice"`
	DiscountType  pricing.DiscountType `json:"discountType"`
	Discount      decimal.Decimal      `json:"discount"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	DiscountValue decimal.Decimal      `json:"discountValue"`
	Total         decimal.Decimal      `json:"total"`
	Position      int                  `json:"position"`
}

// Totals are the document level pricing fields.
type Totals struct {
	Subtotal      decimal.Decimal      `json:"subtotal"`
	DiscountType  pricing.DiscountType `json:"discountType"`
	Discount      decimal.Decimal      `json:"discount"`
	DiscountValue decimal.Decimal      `json:"discountValue"`
	Total         decimal.Decimal      `json:"total"`
}

// Price turns inputs into priced items and document totals. An empty
// discount type means no discount.
func Price(inputs []ItemInput, discountType pricing.DiscountType, discount decimal.Decimal) ([]Item, Totals) {
	lines := make([]pricing.Line, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, pricing.Line{
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			DiscountType: in.DiscountType,
			Discount:     in.Discount,
		})
	}
	res := pricing.Document(lines, discountType, discount)
	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		items = append(items, Item{
			ID:            uuid.New(),
			ProductID:     in.ProductID,
			Description:   strings.TrimSpace(in.Description),
			Quantity:      in.Quantity,
			UnitPrice:     in.UnitPrice,
			DiscountType:  in.DiscountType,
			Discount:      in.Discount,
			Subtotal:      res.Lines[i].Subtotal,
			DiscountValue: res.Lines[i].DiscountValue,
			Total:         res.Lines[i].Total,
			Position:      i + 1,
		})
	}
	return items, Totals{
		Subtotal:      res.Subtotal,
		DiscountType:  discountType,
		Discount:      discount,
		DiscountValue: res.DiscountValue,
		Total:         res.Total,
	}
}

// Inputs converts stored items back into inputs, for duplication.
func Inputs(items []Item) []ItemInput {
	out := make([]ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, ItemInput{
			ProductID:    it.ProductID,
			Description:  it.Description,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			DiscountType: it.DiscountType,
			Discount:     it.Discount,
		})
	}
	return out
}

// ProductIDs returns the distinct product references of inputs.
func ProductIDs(inputs []ItemInput) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for _, in := range inputs {
		if in.ProductID == nil {
			continue
		}
		if _, ok := seen[*in.ProductID]; ok {
			continue
		}
		seen[*in.ProductID] = struct{}{}
		ids = append(ids, *in.ProductID)
	}
	return ids
}
