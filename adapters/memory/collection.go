// Package memory holds in-process implementations of the remote gateways.
// They back the test suites and `app.backend=memory` local runs.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
)

const (
	columnID        = "id"
	columnCreatedAt = "created_at"
	columnUpdatedAt = "updated_at"
)

// Collection keeps rows as column maps in insertion order and decodes them
// into T through their json tags.
type Collection[T any] struct {
	mu      sync.RWMutex
	name    string
	columns map[string]struct{}
	rows    []service.Values
	now     func() time.Time
	last    time.Time
}

var _ service.Collection[struct{}] = (*Collection[struct{}])(nil)

func NewCollection[T any](name string, columns []string) *Collection[T] {
	cols := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		cols[c] = struct{}{}
	}
	return &Collection[T]{name: name, columns: cols, now: time.Now}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Len reports the number of stored rows.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

func (c *Collection[T]) Select(ctx context.Context, q service.Query) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.checkQuery(q); err != nil {
		return nil, err
	}

	c.mu.RLock()
	matched := make([]service.Values, 0, len(c.rows))
	for _, row := range c.rows {
		if matches(row, q.Filters) {
			matched = append(matched, row)
		}
	}
	c.mu.RUnlock()

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i], matched[j], q.Order)
		})
	}
	if q.Limit > 0 && uint64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, row := range matched {
		v, err := decode[T](row)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Sprintf("failed to decode %s row", c.name), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Collection[T]) Single(ctx context.Context, q service.Query) (T, error) {
	rows, err := c.Select(ctx, q)
	if err != nil {
		var zero T
		return zero, err
	}
	return service.SingleRow(c.name, rows)
}

func (c *Collection[T]) Insert(ctx context.Context, row service.Values) (T, int, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	if err := c.checkPatch(row); err != nil {
		return zero, 0, err
	}

	c.mu.Lock()
	stored := make(service.Values, len(row)+3)
	for k, v := range row {
		stored[k] = v
	}
	stored[columnID] = uuid.New()
	now := c.tick()
	for _, col := range []string{columnCreatedAt, columnUpdatedAt} {
		if _, ok := c.columns[col]; ok {
			if _, given := stored[col]; !given {
				stored[col] = now
			}
		}
	}
	c.rows = append(c.rows, stored)
	c.mu.Unlock()

	v, err := decode[T](stored)
	if err != nil {
		return zero, 0, apperror.NewInternal(fmt.Sprintf("failed to decode %s row", c.name), err)
	}
	return v, http.StatusCreated, nil
}

func (c *Collection[T]) Update(ctx context.Context, id uuid.UUID, patch service.Values) (T, int, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}
	if err := c.checkPatch(patch); err != nil {
		return zero, 0, err
	}

	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return zero, 0, apperror.NewNotFound(c.name, id.String())
	}
	updated := make(service.Values, len(c.rows[idx]))
	for k, v := range c.rows[idx] {
		updated[k] = v
	}
	for k, v := range patch {
		updated[k] = v
	}
	if _, ok := c.columns[columnUpdatedAt]; ok {
		if _, given := patch[columnUpdatedAt]; !given {
			updated[columnUpdatedAt] = c.tick()
		}
	}
	c.rows[idx] = updated
	c.mu.Unlock()

	v, err := decode[T](updated)
	if err != nil {
		return zero, 0, apperror.NewInternal(fmt.Sprintf("failed to decode %s row", c.name), err)
	}
	return v, http.StatusOK, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(id)
	if idx < 0 {
		return 0, apperror.NewNotFound(c.name, id.String())
	}
	c.rows = append(c.rows[:idx:idx], c.rows[idx+1:]...)
	return http.StatusNoContent, nil
}

func (c *Collection[T]) indexOf(id uuid.UUID) int {
	for i, row := range c.rows {
		if rowID, ok := row[columnID].(uuid.UUID); ok && rowID == id {
			return i
		}
	}
	return -1
}

// tick returns a strictly increasing timestamp so rows inserted in the same
// clock tick still order by insertion. Callers hold c.mu.
func (c *Collection[T]) tick() time.Time {
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

func (c *Collection[T]) checkQuery(q service.Query) error {
	for _, f := range q.Filters {
		if _, ok := c.columns[f.Column]; !ok {
			return apperror.NewInvalidInput(fmt.Sprintf("unknown column %q in %s filter", f.Column, c.name), nil)
		}
	}
	for _, o := range q.Order {
		if _, ok := c.columns[o.Column]; !ok {
			return apperror.NewInvalidInput(fmt.Sprintf("unknown column %q in %s order", o.Column, c.name), nil)
		}
	}
	return nil
}

func (c *Collection[T]) checkPatch(v service.Values) error {
	if len(v) == 0 {
		return apperror.NewInvalidInput(fmt.Sprintf("empty %s write", c.name), nil)
	}
	for k := range v {
		if k == columnID {
			return apperror.NewInvalidInput("id is assigned by the store", nil)
		}
		if _, ok := c.columns[k]; !ok {
			return apperror.NewInvalidInput(fmt.Sprintf("unknown column %q in %s write", k, c.name), nil)
		}
	}
	return nil
}

func decode[T any](row service.Values) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     &out,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return out, err
	}
	err = dec.Decode(map[string]any(row))
	return out, err
}

func matches(row service.Values, filters []service.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// less sorts NULLs last in either direction, matching the NULLS LAST the
// PostgreSQL collection emits.
func less(a, b service.Values, order []service.Order) bool {
	for _, o := range order {
		av, bv := a[o.Column], b[o.Column]
		switch {
		case av == nil && bv == nil:
			continue
		case av == nil:
			return false
		case bv == nil:
			return true
		}
		cmp := compare(av, bv)
		if cmp == 0 {
			continue
		}
		if o.Ascending {
			return cmp < 0
		}
		return cmp > 0
	}
	return false
}

func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
