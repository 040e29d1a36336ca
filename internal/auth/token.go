package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alvarodevdoo/erp/internal/shared"
)

// Claims carries the registered JWT claims plus the tenant of the user.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Email     string `json:"email"`
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret required")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: jwt ttl must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for user and returns it with the principal it encodes.
func (t *TokenIssuer) Issue(user *User) (string, shared.Principal, error) {
	now := t.now().UTC()
	principal := shared.Principal{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(t.ttl).Truncate(time.Second),
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        principal.TokenID,
			Issuer:    t.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(principal.ExpiresAt),
		},
		CompanyID: user.CompanyID.String(),
		Email:     user.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", shared.Principal{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, principal, nil
}

// Parse validates raw and returns the principal it carries.
func (t *TokenIssuer) Parse(raw string) (shared.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return shared.Principal{}, shared.Unauthorized("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return shared.Principal{}, shared.Unauthorized("invalid token subject")
	}
	companyID, err := uuid.Parse(claims.CompanyID)
	if err != nil {
		return shared.Principal{}, shared.Unauthorized("invalid token company")
	}
	if claims.ID == "" {
		return shared.Principal{}, shared.Unauthorized("invalid token id")
	}
	return shared.Principal{
		UserID:    userID,
		CompanyID: companyID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
