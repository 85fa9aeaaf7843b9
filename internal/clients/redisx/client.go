package redisx

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowsmith/flowsmith-backend/internal/platform/envutil"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// NewClient connects to Redis, or returns (nil, nil) when REDIS_ADDR is
// unset. Callers treat a nil client as "caching and pub/sub disabled".
func NewClient(log *logger.Logger) (*goredis.Client, error) {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		if log != nil {
			log.Warn("REDIS_ADDR not set; Redis disabled")
		}
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
