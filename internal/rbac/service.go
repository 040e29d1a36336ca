package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/alvarodevdoo/erp/internal/platform/cache"
)

// Service resolves permissions, caching effective sets per user in Redis.
// Cached sets are keyed by a per-company version so role changes invalidate
// every user of the tenant at once.
type Service struct {
	store  Store
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. A nil redis client disables caching.
func NewService(store Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, redis: client, ttl: ttl, logger: logger}
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, companyID, userID uuid.UUID) ([]string, error) {
	key := s.cacheKey(ctx, companyID, userID)
	if key != "" {
		if perms, ok := s.readCache(ctx, key); ok {
			return perms, nil
		}
	}
	sfKey := companyID.String() + ":" + userID.String()
	v, err, _ := s.group.Do(sfKey, func() (any, error) {
		perms, err := s.store.UserPermissions(ctx, companyID, userID)
		if err != nil {
			return nil, fmt.Errorf("rbac: load permissions: %w", err)
		}
		if key != "" {
			s.writeCache(ctx, key, perms)
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	perms := v.([]string)
	out := make([]string, len(perms))
	copy(out, perms)
	return out, nil
}

// Invalidate drops every cached permission set of the company.
func (s *Service) Invalidate(ctx context.Context, companyID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, versionKey(companyID)).Err(); err != nil {
		s.logger.Warn("rbac invalidate cache", slog.String("company_id", companyID.String()), slog.Any("error", err))
	}
}

// ListPermissions returns the stored permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// SyncCatalog upserts the built-in permission catalog.
func (s *Service) SyncCatalog(ctx context.Context) error {
	return s.store.EnsurePermissions(ctx, Catalog())
}

func (s *Service) cacheKey(ctx context.Context, companyID, userID uuid.UUID) string {
	if s.redis == nil || s.ttl <= 0 {
		return ""
	}
	version, err := s.redis.Get(ctx, versionKey(companyID)).Result()
	if errors.Is(err, redis.Nil) {
		version = "0"
	} else if err != nil {
		s.logger.Warn("rbac read cache version", slog.Any("error", err))
		return ""
	}
	return cache.Key("rbac", "perms", companyID.String(), "v"+version, userID.String())
}

func (s *Service) readCache(ctx context.Context, key string) ([]string, bool) {
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("rbac read cache", slog.Any("error", err))
		}
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

func (s *Service) writeCache(ctx context.Context, key string, perms []string) {
	raw, err := json.Marshal(perms)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("rbac write cache", slog.Any("error", err))
	}
}

func versionKey(companyID uuid.UUID) string {
	return cache.Key("rbac", "version", companyID.String())
}
