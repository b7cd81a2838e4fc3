package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNoRows       = errors.New("the result contains 0 rows")
	ErrMultipleRows = errors.New("the result contains more than one row")
)

// Values is a column → value patch for inserts and updates.
type Values map[string]any

type Filter struct {
	Column string
	Value  any
}

type Order struct {
	Column    string
	Ascending bool
}

// Query selects rows of one collection. Filters are ANDed equality matches;
// a zero Limit means no limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   uint64
}

func (q Query) Eq(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

func (q Query) OrderBy(column string, ascending bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Ascending: ascending})
	return q
}

func (q Query) WithLimit(n uint64) Query {
	q.Limit = n
	return q
}

// Collection is the remote CRUD contract every entity store talks to. Ids
// are always assigned by the implementation. Write operations return the
// HTTP-style status of the remote call (201 insert, 200 update, 204 delete).
type Collection[T any] interface {
	Name() string
	Select(ctx context.Context, q Query) ([]T, error)
	Single(ctx context.Context, q Query) (T, error)
	Insert(ctx context.Context, row Values) (T, int, error)
	Update(ctx context.Context, id uuid.UUID, patch Values) (T, int, error)
	Delete(ctx context.Context, id uuid.UUID) (int, error)
}

// SingleRow applies single-row semantics to a result set.
func SingleRow[T any](collection string, rows []T) (T, error) {
	var zero T
	switch len(rows) {
	case 0:
		return zero, fmt.Errorf("%s: %w", collection, ErrNoRows)
	case 1:
		return rows[0], nil
	default:
		return zero, fmt.Errorf("%s: %w", collection, ErrMultipleRows)
	}
}
