package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrodcast/account-service/internal/core/domain"
	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/repository"
)

const uniqueViolationCode = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row together with its credential and returns the
// persisted user. A unique email violation surfaces as repository.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user domain.User, credential domain.PersistedCredential) (*domain.User, error) {
	stmt, args, err := r.builder.Insert("users").
		Columns("name", "email", "hash", "salt", "iterations", "admin", "active").
		Values(user.Name, user.Email, credential.Hash, credential.Salt, credential.Iterations, user.Admin, user.Active).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert user sql: %w", err)
	}

	created := user
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &created, nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

func (r *UserRepository) getBy(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select("id", "name", "email", "admin", "active", "created_at", "updated_at").
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	var user domain.User
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Admin,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

// Delete removes a user row by identifier.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.deleteBy(ctx, squirrel.Eq{"id": id})
}

// DeleteByEmail removes a user row by email.
func (r *UserRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.deleteBy(ctx, squirrel.Eq{"email": email})
}

func (r *UserRepository) deleteBy(ctx context.Context, where squirrel.Eq) error {
	stmt, args, err := r.builder.Delete("users").
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetCredentialByEmail retrieves the stored credential for an account.
func (r *UserRepository) GetCredentialByEmail(ctx context.Context, email string) (*domain.PersistedCredential, error) {
	stmt, args, err := r.builder.
		Select("hash", "salt", "iterations").
		From("users").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select credential sql: %w", err)
	}

	var credential domain.PersistedCredential
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&credential.Hash, &credential.Salt, &credential.Iterations); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}

	return &credential, nil
}

// ReplaceCredential overwrites the stored credential for an account.
func (r *UserRepository) ReplaceCredential(ctx context.Context, email string, credential domain.PersistedCredential) error {
	stmt, args, err := r.builder.Update("users").
		Set("hash", credential.Hash).
		Set("salt", credential.Salt).
		Set("iterations", credential.Iterations).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update credential sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
