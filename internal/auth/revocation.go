package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alvarodevdoo/erp/internal/platform/cache"
)

// RevocationList stores logged-out token ids in Redis until they expire.
type RevocationList struct {
	client *redis.Client
	now    func() time.Time
}

// NewRevocationList constructs the list.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client, now: time.Now}
}

// Revoke marks tokenID as unusable until expiresAt.
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, revocationKey(tokenID), "1", ttl).Err()
}

// IsRevoked reports whether tokenID was revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func revocationKey(tokenID string) string {
	return cache.Key("auth", "revoked", tokenID)
}
