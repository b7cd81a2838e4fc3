package persistence

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/application/service"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
	"github.com/khoahotran/portfolio-cms/pkg/metrics"
)

var (
	psql   = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	tracer = otel.Tracer("persistence")
)

const (
	uniqueViolation = "23505"
	columnUpdatedAt = "updated_at"
)

// Table is a service.Collection over one PostgreSQL table. scan must read
// the columns in the order given to NewTable.
type Table[T any] struct {
	db      *pgxpool.Pool
	name    string
	columns []string
	known   map[string]struct{}
	scan    func(pgx.Row) (T, error)
	logger  logger.Logger
}

func NewTable[T any](db *pgxpool.Pool, name string, columns []string, scan func(pgx.Row) (T, error), log logger.Logger) *Table[T] {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	return &Table[T]{
		db:      db,
		name:    name,
		columns: columns,
		known:   known,
		scan:    scan,
		logger:  log.With(zap.String("table", name)),
	}
}

func (t *Table[T]) Name() string {
	return t.name
}

func (t *Table[T]) Select(ctx context.Context, q service.Query) ([]T, error) {
	ctx, span := t.start(ctx, "Select")
	defer span.End()
	defer metrics.ObserveGateway(t.name, "select", time.Now())

	qb := psql.Select(t.columns...).From(t.name)
	for _, f := range q.Filters {
		if err := t.checkColumn(f.Column); err != nil {
			return nil, err
		}
		qb = qb.Where(sq.Eq{f.Column: f.Value})
	}
	for _, o := range q.Order {
		if err := t.checkColumn(o.Column); err != nil {
			return nil, err
		}
		dir := "DESC"
		if o.Ascending {
			dir = "ASC"
		}
		qb = qb.OrderBy(fmt.Sprintf("%s %s NULLS LAST", o.Column, dir))
	}
	if q.Limit > 0 {
		qb = qb.Limit(q.Limit)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build select", err)
	}

	rows, err := t.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		t.logger.Error("Select failed", err, zap.String("sql", query))
		return nil, apperror.NewInternal(fmt.Sprintf("failed to query %s", t.name), err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			span.RecordError(err)
			return nil, apperror.NewInternal(fmt.Sprintf("failed to scan %s row", t.name), err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, apperror.NewInternal(fmt.Sprintf("error iterating %s rows", t.name), err)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (t *Table[T]) Single(ctx context.Context, q service.Query) (T, error) {
	rows, err := t.Select(ctx, q)
	if err != nil {
		var zero T
		return zero, err
	}
	return service.SingleRow(t.name, rows)
}

func (t *Table[T]) Insert(ctx context.Context, row service.Values) (T, int, error) {
	ctx, span := t.start(ctx, "Insert")
	defer span.End()
	defer metrics.ObserveGateway(t.name, "insert", time.Now())

	var zero T
	if err := t.checkWrite(row); err != nil {
		return zero, 0, err
	}

	query, args, err := psql.Insert(t.name).SetMap(map[string]any(row)).Suffix(t.returning()).ToSql()
	if err != nil {
		return zero, 0, apperror.NewInternal("failed to build insert", err)
	}

	v, err := t.scan(t.db.QueryRow(ctx, query, args...))
	if err != nil {
		span.RecordError(err)
		return zero, 0, t.writeError("insert", err)
	}
	return v, http.StatusCreated, nil
}

func (t *Table[T]) Update(ctx context.Context, id uuid.UUID, patch service.Values) (T, int, error) {
	ctx, span := t.start(ctx, "Update")
	defer span.End()
	defer metrics.ObserveGateway(t.name, "update", time.Now())
	span.SetAttributes(attribute.String("id", id.String()))

	var zero T
	if err := t.checkWrite(patch); err != nil {
		return zero, 0, err
	}

	set := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		set[k] = v
	}
	if _, ok := t.known[columnUpdatedAt]; ok {
		if _, given := set[columnUpdatedAt]; !given {
			set[columnUpdatedAt] = sq.Expr("NOW()")
		}
	}

	query, args, err := psql.Update(t.name).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix(t.returning()).
		ToSql()
	if err != nil {
		return zero, 0, apperror.NewInternal("failed to build update", err)
	}

	v, err := t.scan(t.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, 0, apperror.NewNotFound(t.name, id.String())
		}
		span.RecordError(err)
		return zero, 0, t.writeError("update", err)
	}
	return v, http.StatusOK, nil
}

func (t *Table[T]) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, span := t.start(ctx, "Delete")
	defer span.End()
	defer metrics.ObserveGateway(t.name, "delete", time.Now())
	span.SetAttributes(attribute.String("id", id.String()))

	query, args, err := psql.Delete(t.name).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, apperror.NewInternal("failed to build delete", err)
	}

	cmdTag, err := t.db.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return 0, t.writeError("delete", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return 0, apperror.NewNotFound(t.name, id.String())
	}
	return http.StatusNoContent, nil
}

func (t *Table[T]) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, t.name+"."+op, trace.WithAttributes(attribute.String("db.sql.table", t.name)))
}

func (t *Table[T]) returning() string {
	return "RETURNING " + strings.Join(t.columns, ", ")
}

func (t *Table[T]) checkColumn(c string) error {
	if _, ok := t.known[c]; !ok {
		return apperror.NewInvalidInput(fmt.Sprintf("unknown column %q for %s", c, t.name), nil)
	}
	return nil
}

// checkWrite also keeps caller-supplied keys out of the SQL text.
func (t *Table[T]) checkWrite(v service.Values) error {
	if len(v) == 0 {
		return apperror.NewInvalidInput(fmt.Sprintf("empty %s write", t.name), nil)
	}
	for k := range v {
		if k == "id" {
			return apperror.NewInvalidInput("id is assigned by the store", nil)
		}
		if err := t.checkColumn(k); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table[T]) writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.NewConflict(t.name, pgErr.ConstraintName, pgErr.Detail)
	}
	t.logger.Error("Write failed", err, zap.String("operation", op))
	return apperror.NewInternal(fmt.Sprintf("failed to %s %s", op, t.name), err)
}
