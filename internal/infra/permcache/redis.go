package permcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

// Redis caches permission verdicts in one hash per entity/vehicle pair, so
// invalidation after a link change is a single DEL.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client}, nil
}

func hashKey(entityID, vehicleID string) string {
	return "perm:" + entityID + ":" + vehicleID
}

func (c *Redis) Get(ctx context.Context, entityID, vehicleID, code string) (bool, bool, error) {
	value, err := c.client.HGet(ctx, hashKey(entityID, vehicleID), code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, err
	}
	return value == "1", true, nil
}

func (c *Redis) Put(ctx context.Context, entityID, vehicleID, code string, allowed bool, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := hashKey(entityID, vehicleID)
	value := "0"
	if allowed {
		value = "1"
	}
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, code, value)
	// The whole hash shares one expiry; refreshing it on every put keeps the
	// bound per verdict conservative.
	pipe.PExpire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Redis) Invalidate(ctx context.Context, entityID, vehicleID string) error {
	return c.client.Del(ctx, hashKey(entityID, vehicleID)).Err()
}

var _ usecase.PermissionCache = (*Redis)(nil)
