// Package store holds the process-wide state containers that cache CMS
// entities and reconcile them with the remote gateway.
//
// Store actions never return gateway errors. A failure is recorded in the
// store's State.Error and, for writes, also reported in the WriteResult.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
	"github.com/khoahotran/portfolio-cms/pkg/metrics"
)

type State[T any] struct {
	Data    T      `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type Listener[T any] func(State[T])

// WriteResult reports one write action. Status is the gateway status code,
// or 0 when the write failed; Error then holds the message the store
// recorded, which a later action may already have cleared from State.
type WriteResult struct {
	Status int
	Error  string
}

func (r WriteResult) OK() bool {
	return r.Status != 0
}

type container[T any] struct {
	mu        sync.RWMutex
	state     State[T]
	clone     func(T) T
	listeners map[uint64]Listener[T]
	next      uint64
}

func (c *container[T]) init(initial T, clone func(T) T) {
	c.state = State[T]{Data: initial}
	c.clone = clone
	c.listeners = make(map[uint64]Listener[T])
}

// Snapshot returns a copy of the current state.
func (c *container[T]) Snapshot() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked()
}

// Subscribe registers fn for every later state change.
func (c *container[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *container[T]) copyLocked() State[T] {
	s := c.state
	if c.clone != nil {
		s.Data = c.clone(s.Data)
	}
	return s
}

// update applies fn under the lock and notifies listeners after releasing it.
func (c *container[T]) update(fn func(*State[T])) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.copyLocked()
	listeners := make([]Listener[T], 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (c *container[T]) begin() {
	c.update(func(s *State[T]) {
		s.Loading = true
		s.Error = ""
	})
}

// fail records err and leaves Data untouched.
func (c *container[T]) fail(err error) WriteResult {
	msg := errorMessage(err)
	c.update(func(s *State[T]) {
		s.Loading = false
		s.Error = msg
	})
	return WriteResult{Error: msg}
}

// base carries what every entity store needs besides its state.
type base struct {
	name   string
	logger logger.Logger
	events service.ContentPublisher
}

func newBase(name string, events service.ContentPublisher, log logger.Logger) base {
	if events == nil {
		events = service.NoopPublisher
	}
	return base{name: name, logger: log.With(zap.String("store", name)), events: events}
}

func (b base) observe(operation string, err error) {
	metrics.ObserveStore(b.name, operation, err)
	if err != nil {
		b.logger.Error("Store operation failed", err, zap.String("operation", operation))
	}
}

func (b base) publish(ctx context.Context, action service.ContentAction, id uuid.UUID) {
	ev := service.ContentEvent{Collection: b.name, Action: action, ID: id}
	if err := b.events.PublishContentEvent(ctx, ev); err != nil {
		b.logger.Warn("Failed to publish content event",
			zap.String("action", string(action)), zap.String("id", id.String()), zap.Error(err))
	}
}

func errorMessage(err error) string {
	return apperror.Text(err)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
