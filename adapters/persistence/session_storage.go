package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/portfolio-cms/internal/domain/session"
	"github.com/khoahotran/portfolio-cms/internal/domain/user"
)

// persistedSession mirrors the envelope the dashboard has always written
// under auth-storage.
type persistedSession struct {
	State struct {
		User *user.User `json:"user"`
	} `json:"state"`
	Version int `json:"version"`
}

// RedisSessionStorage keeps the signed-in identity under auth-storage. The
// key expires with the session TTL.
type RedisSessionStorage struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

var _ session.Storage = (*RedisSessionStorage)(nil)

// NewRedisSessionStorage scopes the key by scope when one is given, so
// several dashboards can share one Redis.
func NewRedisSessionStorage(rdb *redis.Client, ttl time.Duration, scope string) *RedisSessionStorage {
	key := session.StorageKey
	if scope != "" {
		key += ":" + scope
	}
	return &RedisSessionStorage{rdb: rdb, key: key, ttl: ttl}
}

func (s *RedisSessionStorage) Load(ctx context.Context) (*user.User, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	var p persistedSession
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return p.State.User, nil
}

func (s *RedisSessionStorage) Save(ctx context.Context, u *user.User) error {
	if u == nil {
		return s.Clear(ctx)
	}
	var p persistedSession
	p.State.User = u
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisSessionStorage) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}
