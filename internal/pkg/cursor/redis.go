package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "invoicepipe:cursor:"

// RedisStore keeps cursors in Redis so they survive restarts and are shared
// between replicas.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and pings it once. A failed ping is logged
// but not fatal: the pipeline degrades to stale cursors, not to downtime.
func NewRedisStore(host, port string) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnf("[Cursor] could not reach redis at %s:%s: %v", host, port, err)
	}

	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, accountID string) (string, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+accountID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cursor for %s: %w", accountID, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, accountID, value string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+accountID, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to store cursor for %s: %w", accountID, err)
	}
	return nil
}
