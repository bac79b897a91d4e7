package posture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const postureKey = "veritas:posture"

// readTimeout caps posture reads independently of the caller's deadline so a
// cache latency spike degrades the read instead of the request.
const readTimeout = 50 * time.Millisecond

// RedisStore propagates the posture through the shared cache. Writes are
// observed by all process instances on their next read.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context) (Posture, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, postureKey).Result()
	if errors.Is(err, redis.Nil) {
		// Unset means nobody has switched since the cache was created.
		return Green, nil
	}
	if err != nil {
		return "", fmt.Errorf("posture read: %w", err)
	}

	p, perr := Parse(val)
	if perr != nil {
		return "", fmt.Errorf("posture read: corrupt value %q", val)
	}
	return p, nil
}

func (s *RedisStore) Set(ctx context.Context, p Posture) error {
	if err := s.client.Set(ctx, postureKey, p.String(), 0).Err(); err != nil {
		return fmt.Errorf("posture write: %w", err)
	}
	return nil
}
