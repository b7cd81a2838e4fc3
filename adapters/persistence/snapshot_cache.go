package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
)

const (
	snapshotKey           = "portfolio:snapshot"
	snapshotGenerationKey = "portfolio:snapshot:generation"
)

// RedisSnapshotCache shares the snapshot and its generation between the API
// processes and the invalidation worker.
type RedisSnapshotCache struct {
	rdb *redis.Client
}

var _ service.SnapshotCache = (*RedisSnapshotCache)(nil)

func NewRedisSnapshotCache(rdb *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{rdb: rdb}
}

func (c *RedisSnapshotCache) Get(ctx context.Context) (*service.PortfolioSnapshot, error) {
	raw, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached snapshot: %w", err)
	}
	var snap service.PortfolioSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}

func (c *RedisSnapshotCache) Generation(ctx context.Context) (uint64, error) {
	return generation(ctx, c.rdb.Get)
}

// Set writes under WATCH on the generation key: an Invalidate landing between
// the check and the write aborts the transaction.
func (c *RedisSnapshotCache) Set(ctx context.Context, snap *service.PortfolioSnapshot, ttl time.Duration, gen uint64) (bool, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("encode snapshot: %w", err)
	}

	stored := false
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx.Get)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey, raw, ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, snapshotGenerationKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set cached snapshot: %w", err)
	}
	return stored, nil
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, snapshotGenerationKey)
		pipe.Del(ctx, snapshotKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached snapshot: %w", err)
	}
	return nil
}

func generation(ctx context.Context, get func(ctx context.Context, key string) *redis.StringCmd) (uint64, error) {
	gen, err := get(ctx, snapshotGenerationKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get snapshot generation: %w", err)
	}
	return gen, nil
}
