package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signed returns the effect of a movement on the balance. ADJUSTMENT keeps
// the sign it was recorded with.
func Signed(t MovementType, q decimal.Decimal) decimal.Decimal {
	switch t {
	case MovementIn, MovementAdjustment:
		return q
	default:
		return q.Neg()
	}
}

// Clamp floors a balance at zero.
func Clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// BalanceBefore sums the movements created strictly before at and clamps the
// result.
func BalanceBefore(movements []Movement, at time.Time) decimal.Decimal {
	raw := decimal.Zero
	for _, m := range movements {
		if m.CreatedAt.Before(at) {
			raw = raw.Add(Signed(m.Type, m.Quantity))
		}
	}
	return Clamp(raw)
}

// Annotate fills PreviousStock and NewStock of a ledger entry. Both clamp the
// raw running sum, the same figures Record stores.
func Annotate(e LedgerEntry) Movement {
	m := e.Movement
	m.PreviousStock = Clamp(e.RawBefore)
	m.NewStock = Clamp(e.RawBefore.Add(Signed(m.Type, m.Quantity)))
	return m
}
