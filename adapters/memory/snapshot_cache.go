package memory

import (
	"context"
	"sync"
	"time"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
)

type SnapshotCache struct {
	mu         sync.RWMutex
	snap       *service.PortfolioSnapshot
	expires    time.Time
	generation uint64
}

var _ service.SnapshotCache = (*SnapshotCache)(nil)

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

func (c *SnapshotCache) Get(context.Context) (*service.PortfolioSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil || (!c.expires.IsZero() && time.Now().After(c.expires)) {
		return nil, nil
	}
	cp := *c.snap
	return &cp, nil
}

func (c *SnapshotCache) Generation(context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation, nil
}

func (c *SnapshotCache) Set(_ context.Context, s *service.PortfolioSnapshot, ttl time.Duration, generation uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false, nil
	}
	cp := *s
	c.snap = &cp
	c.expires = time.Time{}
	if ttl > 0 {
		c.expires = time.Now().Add(ttl)
	}
	return true, nil
}

func (c *SnapshotCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.snap = nil
	return nil
}
