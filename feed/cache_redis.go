package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	Logger "github.com/plumeapp/plume/utils/log"
)

const firstPageKeyPrefix = "plume__firstpage__"

// RedisFirstPageCache is the Redis backed variant of FirstPageCache, used
// when the service runs with more than one replica so a write on one
// replica invalidates the first page everywhere. Semantics are identical to
// the in-process memo: 60s TTL, unconditional invalidation on write.
type RedisFirstPageCache struct {
	inner *redis.Client
	ttl   time.Duration
}

func NewRedisFirstPageCache(client *redis.Client) *RedisFirstPageCache {
	return &RedisFirstPageCache{inner: client, ttl: FirstPageTTL}
}

func firstPageKey(limit int) string {
	return fmt.Sprintf("%s%d", firstPageKeyPrefix, limit)
}

func (c *RedisFirstPageCache) Get(ctx context.Context, limit int) (*Page, bool) {
	data, err := c.inner.Get(ctx, firstPageKey(limit)).Bytes()
	if err != nil {
		// redis.Nil is the ordinary miss, anything else is a degraded cache.
		if err != redis.Nil {
			Logger.Log.Warn("first page cache read failed: ", err)
		}
		return nil, false
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		Logger.Log.Warn("first page cache entry corrupt, dropping: ", err)
		c.inner.Del(ctx, firstPageKey(limit))
		return nil, false
	}
	return &page, true
}

func (c *RedisFirstPageCache) Set(ctx context.Context, limit int, page *Page) {
	data, err := json.Marshal(page)
	if err != nil {
		Logger.Log.Warn("first page cache encode failed: ", err)
		return
	}
	if err := c.inner.Set(ctx, firstPageKey(limit), data, c.ttl).Err(); err != nil {
		Logger.Log.Warn("first page cache write failed: ", err)
	}
}

// allFirstPageKeys enumerates every key the cache can ever hold: one per
// clamped limit. Limits are clamped before any cache access, so deleting
// this fixed set outright avoids a KEYS scan, which blocks Redis on the
// size of the whole keyspace.
func allFirstPageKeys() []string {
	keys := make([]string, 0, MaxPageLimit)
	for limit := 1; limit <= MaxPageLimit; limit++ {
		keys = append(keys, firstPageKey(limit))
	}
	return keys
}

func (c *RedisFirstPageCache) Invalidate(ctx context.Context) {
	if err := c.inner.Del(ctx, allFirstPageKeys()...).Err(); err != nil {
		Logger.Log.Warn("first page cache invalidation failed: ", err)
	}
}
