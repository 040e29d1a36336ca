package orders

import (
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/sales/pricing"
)

var hundred = decimal.NewFromInt(100)

// LabourCost is hours × hourly rate rounded to cents.
func LabourCost(hours, rate decimal.Decimal) decimal.Decimal {
	return pricing.Round(hours.Mul(rate))
}

// Summarize computes hours, labour cost, expenses and margin of an order.
// Margin is total − labour − expenses and may be negative.
func Summarize(o *Order, entries []TimeEntry, expenses []Expense) Summary {
	s := Summary{
		OrderID:      o.ID,
		Number:       o.Number,
		Status:       o.Status,
		Total:        o.Total,
		Hours:        decimal.Zero,
		LabourCost:   decimal.Zero,
		Expenses:     decimal.Zero,
		TimeEntries:  len(entries),
		ExpenseCount: len(expenses),
	}
	for _, e := range entries {
		s.Hours = s.Hours.Add(e.Hours)
		s.LabourCost = s.LabourCost.Add(LabourCost(e.Hours, e.HourlyRate))
	}
	for _, e := range expenses {
		s.Expenses = s.Expenses.Add(e.Amount)
	}
	s.Expenses = pricing.Round(s.Expenses)
	s.Margin = pricing.Round(o.Total.Sub(s.LabourCost).Sub(s.Expenses))
	s.MarginPercent = decimal.Zero
	if o.Total.IsPositive() {
		s.MarginPercent = pricing.Round(s.Margin.Mul(hundred).Div(o.Total))
	}
	return s
}
