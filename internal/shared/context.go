package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Principal describes the authenticated actor of a request.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
