package partners

import (
	"time"

	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// Type classifies a partner.
type Type string

const (
	TypeCustomer Type = "CUSTOMER"
	TypeSupplier Type = "SUPPLIER"
	TypeBoth     Type = "BOTH"
)

// Valid reports whether t is a known partner type.
func (t Type) Valid() bool {
	switch t {
	case TypeCustomer, TypeSupplier, TypeBoth:
		return true
	}
	return false
}

// Partner is a customer and/or supplier of a company.
type Partner struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"companyId"`
	Type      Type      `json:"type"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows partner listings.
type ListFilter struct {
	shared.ListFilters
	Type Type
}
