package roles

import (
	"time"

	"github.com/google/uuid"
)

// Role groups permissions inside a company.
type Role struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"companyId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleInput is the payload of create and update.
type RoleInput struct {
	Name        string   `json:"name" validate:"required,max=80"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

// PermissionsInput replaces the permissions of a role.
type PermissionsInput struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}
