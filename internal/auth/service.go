package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// PermissionSource resolves the effective permissions of a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error)
}

// Revoker tracks tokens that were logged out before expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenIssuer
	revoker Revoker
	perms   PermissionSource
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, revoker Revoker, perms PermissionSource) *Service {
	return &Service{repo: repo, tokens: tokens, revoker: revoker, perms: perms}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	token, principal, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	perms, err := s.permissions(ctx, user)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: principal.ExpiresAt,
		User:      profileOf(user, perms),
	}, nil
}

// Logout revokes the token of the principal.
func (s *Service) Logout(ctx context.Context, principal shared.Principal) error {
	if err := s.revoker.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Me returns the profile of the principal.
func (s *Service) Me(ctx context.Context, principal shared.Principal) (Profile, error) {
	user, err := s.repo.FindByID(ctx, principal.CompanyID, principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Profile{}, shared.Unauthorized("user no longer exists")
		}
		return Profile{}, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return Profile{}, shared.Unauthorized("user is inactive")
	}
	perms, err := s.permissions(ctx, user)
	if err != nil {
		return Profile{}, err
	}
	return profileOf(user, perms), nil
}

// Verify parses raw and rejects revoked tokens.
func (s *Service) Verify(ctx context.Context, raw string) (shared.Principal, error) {
	principal, err := s.tokens.Parse(raw)
	if err != nil {
		return shared.Principal{}, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, principal.TokenID)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return shared.Principal{}, shared.Unauthorized("token has been revoked")
	}
	return principal, nil
}

func (s *Service) permissions(ctx context.Context, user *User) ([]string, error) {
	if s.perms == nil {
		return nil, nil
	}
	perms, err := s.perms.EffectivePermissions(ctx, user.CompanyID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	return perms, nil
}
