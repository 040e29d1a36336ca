package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn adds stock.
	MovementIn MovementType = "IN"
	// MovementOut removes stock.
	MovementOut MovementType = "OUT"
	// MovementAdjustment applies a signed correction.
	MovementAdjustment MovementType = "ADJUSTMENT"
	// MovementTransfer sends stock to the destination named in Reference.
	MovementTransfer MovementType = "TRANSFER"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

// Movement is an immutable stock ledger entry. PreviousStock and NewStock are
// computed on read.
type Movement struct {
	ID            uuid.UUID       `json:"id"`
	CompanyID     uuid.UUID       `json:"companyId"`
	ProductID     uuid.UUID       `json:"productId"`
	ProductName   string          `json:"productName,omitempty"`
	Type          MovementType    `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Reason        string          `json:"reason"`
	Reference     string          `json:"reference"`
	UserID        *uuid.UUID      `json:"userId"`
	CreatedAt     time.Time       `json:"createdAt"`
	PreviousStock decimal.Decimal `json:"previousStock"`
	NewStock      decimal.Decimal `json:"newStock"`
}

// LedgerEntry is a stored movement plus the raw signed sum of the movements
// of its product that precede it.
type LedgerEntry struct {
	Movement
	RawBefore decimal.Decimal
}

// MovementInput is the payload of POST /stock-movements.
type MovementInput struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Type      MovementType    `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT TRANSFER"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason" validate:"max=255"`
	Reference string          `json:"reference" validate:"max=120"`
}

// ListFilter narrows movement listings.
type ListFilter struct {
	shared.ListFilters
	ProductID *uuid.UUID
	Type      MovementType
}

// ProductRef is the locked product row a movement applies to.
type ProductRef struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
	MinStock decimal.Decimal
}

// LowStockProduct is an active product below its minimum stock.
type LowStockProduct struct {
	ProductID uuid.UUID       `json:"productId"`
	CompanyID uuid.UUID       `json:"companyId"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Stock     decimal.Decimal `json:"stock"`
	MinStock  decimal.Decimal `json:"minStock"`
}
