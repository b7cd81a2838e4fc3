package store

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

// List caches an ordered collection. Inserts re-fetch the whole list so that
// server-assigned ids, defaults and ordering stay authoritative; updates and
// deletes are applied locally once the server has confirmed them.
type List[T any] struct {
	container[[]T]
	base
	coll  service.Collection[T]
	id    func(T) uuid.UUID
	order []service.Order
	less  func(a, b T) bool
}

func NewList[T any](
	coll service.Collection[T],
	id func(T) uuid.UUID,
	order []service.Order,
	less func(a, b T) bool,
	events service.ContentPublisher,
	log logger.Logger,
) *List[T] {
	l := &List[T]{base: newBase(coll.Name(), events, log), coll: coll, id: id, order: order, less: less}
	l.init([]T{}, func(rows []T) []T { return slices.Clone(rows) })
	return l
}

func (l *List[T]) Fetch(ctx context.Context) {
	l.begin()

	rows, err := l.coll.Select(ctx, service.Query{Order: l.order})
	l.observe("fetch", err)
	if err != nil {
		l.fail(err)
		return
	}

	l.update(func(st *State[[]T]) {
		st.Data = rows
		st.Loading = false
	})
}

// Add inserts a row and reloads the list. A failed insert reports status 0.
func (l *List[T]) Add(ctx context.Context, values service.Values) WriteResult {
	l.begin()

	row, status, err := l.coll.Insert(ctx, values)
	l.observe("add", err)
	if err != nil {
		return l.fail(err)
	}
	l.publish(ctx, service.ContentCreated, l.id(row))

	l.Fetch(ctx)
	return WriteResult{Status: status}
}

// Update writes patch to the row and swaps the returned row into the cached
// list, keeping the list in its defined order.
func (l *List[T]) Update(ctx context.Context, id uuid.UUID, patch service.Values) WriteResult {
	l.begin()

	row, status, err := l.coll.Update(ctx, id, patch)
	l.observe("update", err)
	if err != nil {
		return l.fail(err)
	}

	l.update(func(st *State[[]T]) {
		idx := slices.IndexFunc(st.Data, func(r T) bool { return l.id(r) == id })
		if idx >= 0 {
			st.Data[idx] = row
		} else {
			st.Data = append(st.Data, row)
		}
		if l.less != nil {
			sort.SliceStable(st.Data, func(i, j int) bool { return l.less(st.Data[i], st.Data[j]) })
		}
		st.Loading = false
	})
	l.publish(ctx, service.ContentUpdated, id)
	return WriteResult{Status: status}
}

// Delete removes the row remotely and drops it from the cache only after
// the server confirmed.
func (l *List[T]) Delete(ctx context.Context, id uuid.UUID) WriteResult {
	l.begin()

	status, err := l.coll.Delete(ctx, id)
	l.observe("delete", err)
	if err != nil {
		return l.fail(err)
	}

	l.update(func(st *State[[]T]) {
		st.Data = slices.DeleteFunc(slices.Clone(st.Data), func(r T) bool { return l.id(r) == id })
		st.Loading = false
	})
	l.publish(ctx, service.ContentDeleted, id)
	return WriteResult{Status: status}
}
