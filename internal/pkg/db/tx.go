package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes surfaced as transient contention. Callers may
// retry the whole operation: nothing is partially committed and all
// domain checks re-run on the retry.
const (
	pgDeadlockDetected = "40P01"
	pgSerializationErr = "40001"
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

// WithTx runs fn inside a single transaction. The transaction commits
// when fn returns nil and rolls back on any error or panic, so a failed
// operation can never leave a reservation without its bid row or vice
// versa. Row locks taken inside fn are held until commit or rollback.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, fn)
}

// IsTransientContention reports whether err is a database-level
// deadlock, serialization, or lock-timeout failure rather than a domain
// error.
func IsTransientContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgDeadlockDetected, pgSerializationErr, pgLockNotAvailable:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
