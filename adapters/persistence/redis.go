package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/config"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

// NewRedisClient connects the client shared by the session storage, the
// identity provider and the snapshot cache.
func NewRedisClient(cfg config.Config, log logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cannot connect Redis at %s: %w", cfg.Redis.Addr, err)
	}

	log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	return rdb, nil
}
