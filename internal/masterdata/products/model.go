package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// Product is a sellable item or a consumable of the print shop. Stock mirrors
// the balance of its stock movements and is never written directly.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	CompanyID    uuid.UUID       `json:"companyId"`
	CategoryID   *uuid.UUID      `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Unit         string          `json:"unit"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	Stock        decimal.Decimal `json:"stock"`
	MinStock     decimal.Decimal `json:"minStock"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// LowStock reports whether the product is below its minimum stock.
func (p Product) LowStock() bool {
	return p.MinStock.IsPositive() && p.Stock.LessThan(p.MinStock)
}

// ListFilter narrows product listings.
type ListFilter struct {
	shared.ListFilters
	CategoryID *uuid.UUID
	LowStock   bool
}

// StockBalance is the balance of a product at a point in time.
type StockBalance struct {
	ProductID uuid.UUID       `json:"productId"`
	At        time.Time       `json:"at"`
	Balance   decimal.Decimal `json:"balance"`
	MinStock  decimal.Decimal `json:"minStock"`
}
