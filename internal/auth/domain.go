package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account able to sign in.
type User struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is returned by a successful login.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

// Profile is the public view of the signed-in user.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"companyId"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions"`
}

func profileOf(u *User, perms []string) Profile {
	if perms == nil {
		perms = []string{}
	}
	return Profile{ID: u.ID, CompanyID: u.CompanyID, Name: u.Name, Email: u.Email, Permissions: perms}
}
