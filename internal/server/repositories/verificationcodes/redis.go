package verificationcodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/basketlog/auth-service/internal/common"
)

const keyPrefix = "verification_code:"

// RedisRepository keeps verification codes in Redis, relying on key TTLs for
// expiry instead of a separate eviction job.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Set(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, keyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis error: %w", err)
	}
	return code, nil
}

func (r *RedisRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, keyPrefix+email).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
