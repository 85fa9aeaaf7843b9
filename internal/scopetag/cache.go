package scopetag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// Cache fronts the chain with a Redis cache. Concurrent misses on the
// same key collapse through singleflight so the chain runs once.
type Cache struct {
	log   *logger.Logger
	chain *Chain
	rdb   *goredis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewCache(baseLog *logger.Logger, chain *Chain, rdb *goredis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		log:   baseLog.With("component", "ScopeTagCache"),
		chain: chain,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func (c *Cache) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if c.rdb == nil {
		return c.chain.Resolve(req)
	}
	key := cacheKey(req)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var res Resolution
		if jsonErr := json.Unmarshal(raw, &res); jsonErr == nil {
			return res, nil
		}
		// stale or corrupt entry, fall through to recompute
		_ = c.rdb.Del(ctx, key).Err()
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		res, err := c.chain.Resolve(req)
		if err != nil {
			return Resolution{}, err
		}
		raw, err := json.Marshal(res)
		if err == nil {
			if setErr := c.rdb.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
				c.log.Warn("scope tag cache write failed", "key", key, "error", setErr)
			}
		}
		return res, nil
	})
	if err != nil {
		return Resolution{}, err
	}
	return v.(Resolution), nil
}

// Invalidate drops every cached resolution for one integration,
// regardless of site-state hash.
func (c *Cache) Invalidate(ctx context.Context, integration string) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, "scopetag:"+integration+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func cacheKey(req Request) string {
	payload, _ := json.Marshal(struct {
		Deps any       `json:"deps"`
		Site SiteState `json:"site"`
	}{Deps: req.Deps, Site: req.Site})
	sum := sha256.Sum256(payload)
	return "scopetag:" + req.Integration.String() + ":" + hex.EncodeToString(sum[:12])
}
