package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-cms/internal/domain/user"
	"github.com/khoahotran/portfolio-cms/pkg/apperror"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

type PostgresUserRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

var _ user.Repository = (*PostgresUserRepo)(nil)

func NewPostgresUserRepo(db *pgxpool.Pool, log logger.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, logger: log}
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, apperror.NewInternal("error when query user", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, name, password_hash
		FROM users
		WHERE lower(email) = lower($1)
	`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, email, name, password_hash
		FROM users
		WHERE id = $1
	`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// SaveOwner creates the user or resets the password of an existing one.
func (r *PostgresUserRepo) SaveOwner(ctx context.Context, email, passwordHash string) (uuid.UUID, error) {
	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING id
	`
	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, uuid.New(), email, passwordHash).Scan(&id); err != nil {
		r.logger.Error("Failed to save owner", err, zap.String("email", email))
		return uuid.Nil, apperror.NewInternal("failed to save owner", err)
	}
	return id, nil
}
