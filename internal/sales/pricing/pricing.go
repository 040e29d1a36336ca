// Package pricing computes item and document totals of quotes and orders.
package pricing

import "github.com/shopspring/decimal"

// DiscountType selects how a discount is interpreted.
type DiscountType string

const (
	// Percentage discounts a rate of the subtotal, 0 to 100.
	Percentage DiscountType = "PERCENTAGE"
	// Fixed discounts a literal amount.
	Fixed DiscountType = "FIXED"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == Percentage || t == Fixed
}

var hundred = decimal.NewFromInt(100)

// Line is the priced input of one item.
type Line struct {
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	DiscountType DiscountType
	Discount     decimal.Decimal
}

// Amounts are the computed values of an item or a document.
type Amounts struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	Total         decimal.Decimal `json:"total"`
}

// Result holds the amounts of each line and of the document.
type Result struct {
	Lines []Amounts
	Amounts
}

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DiscountValue resolves a discount against base. The result is clamped to
// [0, base] so totals are never negative.
func DiscountValue(base decimal.Decimal, t DiscountType, discount decimal.Decimal) decimal.Decimal {
	var v decimal.Decimal
	switch t {
	case Percentage:
		v = base.Mul(discount).Div(hundred)
	case Fixed:
		v = discount
	default:
		return decimal.Zero
	}
	v = Round(v)
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(base) {
		return base
	}
	return v
}

// Item prices a single line.
func Item(l Line) Amounts {
	subtotal := Round(l.Quantity.Mul(l.UnitPrice))
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	discount := DiscountValue(subtotal, l.DiscountType, l.Discount)
	return Amounts{Subtotal: subtotal, DiscountValue: discount, Total: subtotal.Sub(discount)}
}

// Document prices every line and applies the document discount to the sum
// of the item subtotals.
func Document(lines []Line, t DiscountType, discount decimal.Decimal) Result {
	res := Result{Lines: make([]Amounts, 0, len(lines))}
	subtotal := decimal.Zero
	for _, l := range lines {
		a := Item(l)
		res.Lines = append(res.Lines, a)
		subtotal = subtotal.Add(a.Subtotal)
	}
	res.Subtotal = subtotal
	res.DiscountValue = DiscountValue(subtotal, t, discount)
	res.Total = subtotal.Sub(res.DiscountValue)
	return res
}
