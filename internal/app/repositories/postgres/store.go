// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/nodues/internal/app/repositories"
	"github.com/yigit/nodues/internal/db"
	"github.com/yigit/nodues/internal/pkg/apperrors"
	"github.com/yigit/nodues/internal/pkg/dberrors"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// base is embedded by every repository
type base struct {
	db      DBTX
	sb      squirrel.StatementBuilderType
	timeout time.Duration
}

func newBase(conn DBTX, timeout time.Duration) base {
	return base{
		db:      conn,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		timeout: timeout,
	}
}

// bound applies the per-call store timeout
func (b base) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// storeErr classifies a pgx error for the service layer
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if dberrors.IsNoRows(err) {
		return apperrors.NewNotFoundError(op + ": not found")
	}
	var ce *apperrors.CustomError
	if errors.As(err, &ce) {
		return err
	}
	return apperrors.NewStoreFailure(op, err)
}

// Store is the PostgreSQL implementation of repositories.Store
type Store struct {
	pg    *db.PostgresDB
	repos *repositories.Repositories
}

// NewStore creates a store over an open pool
func NewStore(pg *db.PostgresDB) *Store {
	return &Store{
		pg:    pg,
		repos: newRepositories(pg.Pool, pg.QueryTimeout),
	}
}

func newRepositories(conn DBTX, timeout time.Duration) *repositories.Repositories {
	return &repositories.Repositories{
		Students:   NewStudentRepository(conn, timeout),
		References: NewReferenceRepository(conn, timeout),
		Requests:   NewRequestRepository(conn, timeout),
		Tracks:     NewTrackRepository(conn, timeout),
		Queries:    NewQueryRepository(conn, timeout),
		Finals:     NewFinalRepository(conn, timeout),
		Staff:      NewStaffRepository(conn, timeout),
	}
}

// Repos implements repositories.Store
func (s *Store) Repos() *repositories.Repositories {
	return s.repos
}

// WithTx implements repositories.Store
func (s *Store) WithTx(ctx context.Context, fn repositories.TxFn) error {
	err := s.pg.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx, s.pg.QueryTimeout))
	})
	if err == nil {
		return nil
	}
	var ce *apperrors.CustomError
	if errors.As(err, &ce) {
		return err
	}
	// begin/commit failures
	return apperrors.NewStoreFailure("transaction", err)
}

// Ping implements repositories.Store
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.pg.QueryTimeout)
	defer cancel()
	if err := s.pg.Pool.Ping(ctx); err != nil {
		return apperrors.NewStoreFailure("ping", err)
	}
	return nil
}

// Close implements repositories.Store
func (s *Store) Close() {
	s.pg.Close()
}
