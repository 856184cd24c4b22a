package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/utils"
)

// TieredCache combines an in-process freecache with an optional shared
// redis backend. Rendered pages are kept in both tiers so multiple
// explorer instances behind a load balancer can share cached pages.
type TieredCache struct {
	localCache  *freecache.Cache
	remoteCache RemoteCache
}

type cacheEntry struct {
	Version uint64      `json:"i"`
	Timeout uint64      `json:"t"`
	Value   interface{} `json:"v"`
}

var ErrCacheMiss = errors.New("cache miss")

type RemoteCache interface {
	SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string, returnValue any) (any, error)
}

// NewTieredCache creates the page cache with cacheSize MB of local memory.
// With an empty redisAddress the cache runs local-only.
func NewTieredCache(cacheSize int, redisAddress string, redisPrefix string) (*TieredCache, error) {
	var remoteCache RemoteCache
	if redisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		redisCache, err := InitRedisCache(ctx, redisAddress, redisPrefix)
		if err != nil {
			logrus.WithError(err).Errorf("could not connect to redis cache at %v", redisAddress)
			return nil, err
		}
		remoteCache = redisCache
	}

	return &TieredCache{
		localCache:  freecache.NewCache(cacheSize * 1024 * 1024),
		remoteCache: remoteCache,
	}, nil
}

func (tc *TieredCache) Set(key string, value interface{}, expiration time.Duration) error {
	entry := cacheEntry{
		Version: 1,
		Value:   value,
	}
	if expiration > 0 {
		entry.Timeout = uint64(time.Now().Add(expiration).Unix())
	}

	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	tc.localCache.Set([]byte(key), entryBytes, int(expiration.Seconds()))
	if tc.remoteCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return tc.remoteCache.SetBytes(ctx, key, entryBytes, expiration)
	}
	return nil
}

// Get unmarshals the cached entry for key into returnValue. A remote hit
// is copied back into the local tier with its remaining lifetime.
func (tc *TieredCache) Get(key string, returnValue interface{}) (interface{}, error) {
	entry := &cacheEntry{
		Value: returnValue,
	}

	localBytes, err := tc.localCache.Get([]byte(key))
	if err == nil {
		err = json.Unmarshal(localBytes, entry)
		if err != nil {
			utils.LogError(err, "could not unmarshal cached entry", 0, map[string]interface{}{"key": key})
			return nil, err
		}
		return returnValue, nil
	}

	if tc.remoteCache == nil {
		return nil, ErrCacheMiss
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = tc.remoteCache.Get(ctx, key, entry)
	if err != nil {
		return nil, err
	}

	if entry.Timeout == 0 || entry.Timeout > uint64(time.Now().Add(2*time.Second).Unix()) {
		entryBytes, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		var remaining uint64
		if entry.Timeout > 0 {
			remaining = entry.Timeout - uint64(time.Now().Unix())
		}
		tc.localCache.Set([]byte(key), entryBytes, int(remaining))
	}
	return returnValue, nil
}
