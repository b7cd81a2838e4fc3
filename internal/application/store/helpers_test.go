package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
)

// recordingCollection counts writes and can be told to fail reads.
type recordingCollection[T any] struct {
	service.Collection[T]

	mu      sync.Mutex
	inserts int
	updates int
	deletes int
	readErr error
}

func record[T any](c service.Collection[T]) *recordingCollection[T] {
	return &recordingCollection[T]{Collection: c}
}

func (c *recordingCollection[T]) failReads(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

func (c *recordingCollection[T]) readError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

func (c *recordingCollection[T]) Select(ctx context.Context, q service.Query) ([]T, error) {
	if err := c.readError(); err != nil {
		return nil, err
	}
	return c.Collection.Select(ctx, q)
}

func (c *recordingCollection[T]) Single(ctx context.Context, q service.Query) (T, error) {
	if err := c.readError(); err != nil {
		var zero T
		return zero, err
	}
	return c.Collection.Single(ctx, q)
}

func (c *recordingCollection[T]) Insert(ctx context.Context, row service.Values) (T, int, error) {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	return c.Collection.Insert(ctx, row)
}

func (c *recordingCollection[T]) Update(ctx context.Context, id uuid.UUID, patch service.Values) (T, int, error) {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()
	return c.Collection.Update(ctx, id, patch)
}

func (c *recordingCollection[T]) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()
	return c.Collection.Delete(ctx, id)
}

// capturePublisher keeps every published event.
type capturePublisher struct {
	mu     sync.Mutex
	events []service.ContentEvent
}

func (p *capturePublisher) PublishContentEvent(_ context.Context, ev service.ContentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) actions() []service.ContentAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]service.ContentAction, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Action)
	}
	return out
}
