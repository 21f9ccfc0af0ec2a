package draft

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage stores each draft as a plain string value.
type RedisStorage struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisStorage creates a RedisStorage. A zero ttl keeps drafts until they
// are deleted.
func NewRedisStorage(rdb redis.Cmdable, ttl time.Duration) *RedisStorage {
	return &RedisStorage{rdb: rdb, ttl: ttl}
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, key, value, r.ttl).Err()
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}
