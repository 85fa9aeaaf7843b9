package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/flowsmith/flowsmith-backend/internal/platform/envutil"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// RunEvent is a recipe-run lifecycle notification fanned out over Redis
// so every API replica can surface run progress to its own clients.
type RunEvent struct {
	Type       string    `json:"type"`
	RecipeID   uuid.UUID `json:"recipe_id"`
	RunID      uuid.UUID `json:"run_id"`
	UserID     uuid.UUID `json:"user_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	RunEventStarted   = "run.started"
	RunEventCompleted = "run.completed"
	RunEventSkipped   = "run.skipped"
)

type RunBus interface {
	Publish(ctx context.Context, ev RunEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev RunEvent)) error
	Close() error
}

type runBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRunBus(log *logger.Logger, rdb *goredis.Client) (RunBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &runBus{
		log:     log.With("service", "RedisRunBus"),
		rdb:     rdb,
		channel: envutil.String("REDIS_RUN_CHANNEL", "recipe-runs"),
	}, nil
}

func (b *runBus) Publish(ctx context.Context, ev RunEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("run bus not initialized")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *runBus) StartForwarder(ctx context.Context, onEvent func(ev RunEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("run bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev RunEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad run event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *runBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
