package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of a company.
type User struct {
	ID           uuid.UUID `json:"id"`
	CompanyID    uuid.UUID `json:"companyId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	Roles        []RoleRef `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RoleRef names a role assigned to a user.
type RoleRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CreateInput is the payload of POST /users.
type CreateInput struct {
	Name     string      `json:"name" validate:"required,max=120"`
	Email    string      `json:"email" validate:"required,email,max=160"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	RoleIDs  []uuid.UUID `json:"roleIds"`
}

// UpdateInput is the payload of PUT /users/{id}. An empty password keeps the
// current one.
type UpdateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=160"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

// RolesInput replaces the roles of a user.
type RolesInput struct {
	RoleIDs []uuid.UUID `json:"roleIds" validate:"required"`
}
