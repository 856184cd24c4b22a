package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rainbowsvgs/spectra/utils"
)

// RedisCache is the shared remote tier of the page cache. All keys are
// stored under a configurable prefix so several deployments can share
// one redis instance.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

func InitRedisCache(ctx context.Context, redisAddress string, keyPrefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        redisAddress,
		ReadTimeout: 20 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

func (rc *RedisCache) SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return rc.client.Set(ctx, rc.keyPrefix+key, value, expiration).Err()
}

// Get unmarshals the stored json for key into returnValue. Entries that
// fail to unmarshal are dropped from redis so a stale encoding cannot
// poison the cache after a deploy.
func (rc *RedisCache) Get(ctx context.Context, key string, returnValue interface{}) (interface{}, error) {
	value, err := rc.client.Get(ctx, rc.keyPrefix+key).Result()
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(value), returnValue)
	if err != nil {
		rc.client.Del(ctx, rc.keyPrefix+key)
		utils.LogError(err, "could not unmarshal cached entry", 0, map[string]interface{}{"key": key})
		return nil, err
	}

	return returnValue, nil
}
