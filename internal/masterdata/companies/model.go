package companies

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant of the ERP.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	TradeName string    `json:"tradeName"`
	Document  string    `json:"document"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Admin is the first user created together with a company.
type Admin struct {
	ID           uuid.UUID
	RoleID       uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Permissions  []string
}
