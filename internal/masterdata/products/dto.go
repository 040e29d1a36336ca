package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput is the payload of create and update.
type ProductInput struct {
	CategoryID  *uuid.UUID      `json:"categoryId"`
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=160"`
	Description string          `json:"description" validate:"max=2000"`
	Unit        string          `json:"unit" validate:"max=16"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Cost        decimal.Decimal `json:"cost" validate:"gte=0"`
	MinStock    decimal.Decimal `json:"minStock" validate:"gte=0"`
}
