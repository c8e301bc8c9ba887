package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Service resolves roles. Resolved roles are cached in Redis with a short
// TTL and concurrent lookups for the same code collapse into one query, so
// the gate stays cheap on hot routes. The cache is optional: with a nil
// client every lookup falls through to PostgreSQL.
type Service struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewService constructs a Service backed by the repository and an optional
// Redis cache.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

// Get resolves a role by code, returning ErrRoleNotFound for a dangling
// reference.
func (s *Service) Get(ctx context.Context, code int32) (Role, error) {
	key := cacheKey(code)
	if role, ok := s.cached(ctx, key); ok {
		return role, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		role, err := s.repo.GetRole(ctx, code)
		if err != nil {
			return Role{}, err
		}
		s.store(ctx, key, role)
		return role, nil
	})
	if err != nil {
		return Role{}, err
	}
	return v.(Role), nil
}

// Default resolves the role every self-registered account starts with.
// A missing default role is a broken seed, not a runtime condition: main
// calls this once at startup and terminates on error.
func (s *Service) Default(ctx context.Context) (Role, error) {
	role, err := s.Get(ctx, CodeDefault)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return Role{}, fmt.Errorf("rbac: a role with code %d must be seeded", CodeDefault)
		}
		return Role{}, err
	}
	return role, nil
}

func (s *Service) cached(ctx context.Context, key string) (Role, bool) {
	if s.cache == nil {
		return Role{}, false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return Role{}, false
	}
	var role Role
	if err := json.Unmarshal(data, &role); err != nil {
		return Role{}, false
	}
	return role, true
}

func (s *Service) store(ctx context.Context, key string, role Role) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(role)
	if err != nil {
		return
	}
	// Best effort: a failed cache write only costs the next lookup a query.
	_ = s.cache.Set(ctx, key, data, s.ttl).Err()
}

func cacheKey(code int32) string {
	return "rbac:role:" + strconv.FormatInt(int64(code), 10)
}
