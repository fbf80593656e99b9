// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"
)

const (
	lockNotAvailableErrorCode pq.ErrorCode = "55P03"
	maxBackoffDuration                     = 1 * time.Minute
	backoffInterval                        = 1 * time.Second
)

// Row is the single-row scan result of QueryRowContext. It is a narrow
// interface (rather than *sql.Row) so fakes can stand in for it in tests
// without a real connection.
type Row interface {
	Scan(dest ...interface{}) error
}

// Rows is the multi-row scan result of QueryContext, narrowed the same way
// Row is: *sql.Rows satisfies it, but so can a fake built from a slice.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// Queryer is the subset of *sql.DB (or *sql.Tx) that executor and state need.
// Phases and catalog introspection are written against this interface so
// they work identically inside and outside a transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) Row
}

// DB is the handle the driver and executor hold onto. Lock-timeout errors
// surfaced by a contended migration (another backend holding DDL locks) are
// retried with backoff by ExecContext, QueryContext and
// WithRetryableTransaction; QueryRowContext and WithTransaction do not retry.
type DB interface {
	Queryer
	WithRetryableTransaction(ctx context.Context, f func(context.Context, Queryer) error) error
	WithTransaction(ctx context.Context, f func(context.Context, Queryer) error) error
	Close() error
}

// RDB wraps a *sql.DB and retries queries using exponential backoff on
// lock_timeout errors (Postgres code 55P03), which fire when a DDL
// statement cannot acquire its lock before lock_timeout expires.
type RDB struct {
	DB *sql.DB
}

func (db *RDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		res, err := db.DB.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if !isLockNotAvailable(err) {
			return nil, err
		}
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
	}
}

func (db *RDB) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		rows, err := db.DB.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		if !isLockNotAvailable(err) {
			return nil, err
		}
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return nil, err
		}
	}
}

func (db *RDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// WithRetryableTransaction runs f in a transaction, retrying the whole
// transaction from scratch on lock_timeout errors. Used for transactional
// phase directions, where re-running f after rollback is always safe.
func (db *RDB) WithRetryableTransaction(ctx context.Context, f func(context.Context, Queryer) error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		err := db.runTx(ctx, f)
		if err == nil {
			return nil
		}
		if !isLockNotAvailable(err) {
			return err
		}
		if err := sleepCtx(ctx, b.Duration()); err != nil {
			return err
		}
	}
}

// WithTransaction runs f in a single transaction with no retry. Used by the
// idempotent-phase discipline's audit-bracket transactions, which must not
// be silently repeated (they record start/end of an IdempotentDDL phase that
// itself runs outside any transaction).
func (db *RDB) WithTransaction(ctx context.Context, f func(context.Context, Queryer) error) error {
	return db.runTx(ctx, f)
}

func (db *RDB) runTx(ctx context.Context, f func(context.Context, Queryer) error) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := f(ctx, wrapStdQueryer(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return rbErr
		}
		return err
	}

	return tx.Commit()
}

func (db *RDB) Close() error {
	return db.DB.Close()
}

// stdQueryer is the method shape *sql.DB and *sql.Tx both have. wrapStdQueryer
// adapts either one to Queryer, translating the *sql.Row return of
// QueryRowContext into the narrower Row interface.
type stdQueryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var _ stdQueryer = (*sql.DB)(nil)
var _ stdQueryer = (*sql.Tx)(nil)

type stdQueryerAdapter struct{ q stdQueryer }

func wrapStdQueryer(q stdQueryer) Queryer { return stdQueryerAdapter{q} }

func (a stdQueryerAdapter) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return a.q.ExecContext(ctx, query, args...)
}

func (a stdQueryerAdapter) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return a.q.QueryContext(ctx, query, args...)
}

func (a stdQueryerAdapter) QueryRowContext(ctx context.Context, query string, args ...interface{}) Row {
	return a.q.QueryRowContext(ctx, query, args...)
}

func isLockNotAvailable(err error) bool {
	pqErr := &pq.Error{}
	return errors.As(err, &pqErr) && pqErr.Code == lockNotAvailableErrorCode
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue scans the first column of the first row, assuming rows
// contains at most one row. It closes rows before returning.
func ScanFirstValue[T any](rows Rows, dest *T) error {
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}
