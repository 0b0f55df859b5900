package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "regflow:license_sequence:"

// RedisSequencer shares counters between workers with INCR.
type RedisSequencer struct {
	client redis.UniversalClient
	prefix string
}

type RedisOption func(*RedisSequencer)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisSequencer) {
		s.prefix = prefix
	}
}

func NewRedisSequencer(client redis.UniversalClient, opts ...RedisOption) *RedisSequencer {
	s := &RedisSequencer{client: client, prefix: DefaultKeyPrefix}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RedisSequencer) Next(ctx context.Context, key string) (int64, error) {
	next, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", key, err)
	}

	return next, nil
}

// NewRedisClient connects to url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
