package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

// Singleton caches a collection constrained to at most one row.
type Singleton[T any] struct {
	container[*T]
	base
	coll service.Collection[T]
	id   func(T) uuid.UUID
}

func NewSingleton[T any](coll service.Collection[T], id func(T) uuid.UUID, events service.ContentPublisher, log logger.Logger) *Singleton[T] {
	s := &Singleton[T]{base: newBase(coll.Name(), events, log), coll: coll, id: id}
	s.init(nil, clonePtr[T])
	return s
}

func (s *Singleton[T]) Fetch(ctx context.Context) {
	s.begin()

	row, err := s.coll.Single(ctx, service.Query{Limit: 1})
	s.observe("fetch", err)
	if err != nil {
		s.fail(err)
		return
	}

	s.update(func(st *State[*T]) {
		st.Data = &row
		st.Loading = false
	})
}

// Upsert inserts the row when none exists and otherwise updates the existing
// one by id. The written row replaces the cached state.
func (s *Singleton[T]) Upsert(ctx context.Context, values service.Values) WriteResult {
	s.begin()

	existing, err := s.coll.Select(ctx, service.Query{Limit: 1})
	if err != nil {
		s.observe("upsert", err)
		return s.fail(err)
	}

	var (
		row    T
		status int
		action service.ContentAction
	)
	if len(existing) == 0 {
		action = service.ContentCreated
		row, status, err = s.coll.Insert(ctx, values)
	} else {
		action = service.ContentUpdated
		row, status, err = s.coll.Update(ctx, s.id(existing[0]), values)
	}
	s.observe("upsert", err)
	if err != nil {
		return s.fail(err)
	}

	s.update(func(st *State[*T]) {
		st.Data = &row
		st.Loading = false
	})
	s.publish(ctx, action, s.id(row))
	return WriteResult{Status: status}
}
