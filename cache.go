package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bluele/gcache"
)

const snapshotCacheKey = "snapshot"

// SnapshotCache memoizes the serialized snapshot for a short TTL so
// clients polling every couple of seconds do not trigger an upstream
// fetch per request. A zero TTL disables caching entirely.
type SnapshotCache struct {
	service *Service
	cache   gcache.Cache
	ttl     time.Duration
}

func NewSnapshotCache(service *Service, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		service: service,
		cache:   gcache.New(4).LRU().Build(),
		ttl:     ttl,
	}
}

// GetJSON returns the serialized snapshot, from cache when fresh.
// Failed snapshots are never cached.
func (c *SnapshotCache) GetJSON(ctx context.Context) ([]byte, error) {
	if c.ttl > 0 {
		if v, err := c.cache.Get(snapshotCacheKey); err == nil {
			if buf, ok := v.([]byte); ok {
				if c.service.collector != nil {
					c.service.collector.CacheHits.Inc()
				}
				return buf, nil
			}
		}
	}

	resp, err := c.service.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		_ = c.cache.SetWithExpire(snapshotCacheKey, buf, c.ttl)
	}
	return buf, nil
}
