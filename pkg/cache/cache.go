package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nhannt26/e-commerce-website-v3/pkg/redis"
)

// Store is the response cache capability handed to handlers.
// Get reports a miss with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, scope, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, scope, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, scope string) error
}

type backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(scope string, parts ...string) string
}

// RedisStore keeps entries under a per-scope generation number. Invalidate
// bumps the generation so every older entry becomes unreachable and ages out
// through its TTL.
type RedisStore struct {
	client backend
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	gen, err := s.generation(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, s.client.CacheKey(scope, gen, key))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(raw), true, nil
}

func (s *RedisStore) Set(ctx context.Context, scope, key string, value []byte, ttl time.Duration) error {
	gen, err := s.generation(ctx, scope)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.client.CacheKey(scope, gen, key), string(value), ttl)
}

func (s *RedisStore) Invalidate(ctx context.Context, scope string) error {
	_, err := s.client.Incr(ctx, s.generationKey(scope))
	return err
}

func (s *RedisStore) generation(ctx context.Context, scope string) (string, error) {
	raw, err := s.client.Get(ctx, s.generationKey(scope))
	if errors.Is(err, redis.ErrNil) {
		return "g0", nil
	}
	if err != nil {
		return "", err
	}
	if _, convErr := strconv.ParseInt(raw, 10, 64); convErr != nil {
		return "g0", nil
	}
	return "g" + raw, nil
}

func (s *RedisStore) generationKey(scope string) string {
	return s.client.CacheKey(scope, "generation")
}
