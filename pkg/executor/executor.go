// SPDX-License-Identifier: Apache-2.0

// Package executor runs a single Phase under its Direction's discipline
// (Component B): a transactional direction runs inside one audit-bracketed
// transaction, an idempotent direction runs its DDL outside any transaction
// between two small audit transactions, and a no-op direction writes a
// single already-finished audit row.
package executor

import (
	"context"
	"fmt"

	"github.com/benkuhn/migrator/pkg/change"
	"github.com/benkuhn/migrator/pkg/db"
	"github.com/benkuhn/migrator/pkg/state"
)

// Executor runs phases against a database, bracketing each with audit rows.
type Executor struct {
	DB       db.DB
	State    *state.State
	Resolver change.Resolver
	ShimName func(revision int) string
	// Logger reports phase start/completion. Defaults to a no-op via New;
	// callers that want CLI-visible progress set it to NewLogger().
	Logger Logger
}

// New builds an Executor with ShimName set to state.ShimSchemaName and a
// no-op Logger.
func New(conn db.DB, st *state.State, resolver change.Resolver) *Executor {
	return &Executor{DB: conn, State: st, Resolver: resolver, ShimName: state.ShimSchemaName, Logger: NewNoopLogger()}
}

// Run executes one direction of one phase, identified by idx and isRevert,
// under the discipline its Transactional()/IsNoOp() report.
func (e *Executor) Run(ctx context.Context, idx change.PhaseIndex, isRevert bool, dir change.Direction) error {
	shim := e.ShimName(idx.Revision)
	e.logger().LogPhaseStart(idx, isRevert)

	var err error
	if dir.IsNoOp() {
		err = e.runNoOp(ctx, idx, isRevert)
	} else if dir.Transactional() {
		err = e.runTransactional(ctx, idx, isRevert, dir, shim)
	} else {
		err = e.runIdempotent(ctx, idx, isRevert, dir, shim)
	}

	if err == nil {
		e.logger().LogPhaseComplete(idx, isRevert)
	}
	return err
}

func (e *Executor) logger() Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return NewNoopLogger()
}

func (e *Executor) runNoOp(ctx context.Context, idx change.PhaseIndex, isRevert bool) error {
	return e.DB.WithRetryableTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
		audit, err := e.State.AuditPhaseStart(ctx, q, idx, isRevert)
		if err != nil {
			return err
		}
		return e.State.AuditPhaseEnd(ctx, q, audit)
	})
}

func (e *Executor) runTransactional(ctx context.Context, idx change.PhaseIndex, isRevert bool, dir change.Direction, shim string) error {
	return e.DB.WithRetryableTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
		audit, err := e.State.AuditPhaseStart(ctx, q, idx, isRevert)
		if err != nil {
			return err
		}

		sql, err := dir.Render(ctx, e.Resolver, shim)
		if err != nil {
			return err
		}
		if sql != "" {
			if _, err := q.ExecContext(ctx, sql); err != nil {
				return err
			}
		}

		return e.State.AuditPhaseEnd(ctx, q, audit)
	})
}

// runIdempotent implements the three-transaction discipline of spec §4.2.
// If resuming finds an existing unfinished row for this exact index, it
// skips straight to re-running the (idempotent) DDL and closing it out,
// rather than starting a second audit row (which the database would reject
// anyway via the one-unfinished-row invariant).
func (e *Executor) runIdempotent(ctx context.Context, idx change.PhaseIndex, isRevert bool, dir change.Direction, shim string) error {
	audit, err := e.State.GetAudit(ctx, idx, isRevert)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		audit, err = e.startIdempotent(ctx, idx, isRevert)
		if err != nil {
			return err
		}
	} else if !audit.Unfinished() {
		return fmt.Errorf("phase %+v already finished", idx)
	}

	sql, err := dir.Render(ctx, e.Resolver, shim)
	if err != nil {
		return err
	}
	if sql != "" {
		if _, err := e.DB.ExecContext(ctx, sql); err != nil {
			return err
		}
	}

	return e.DB.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
		return e.State.AuditPhaseEnd(ctx, q, audit)
	})
}

func (e *Executor) startIdempotent(ctx context.Context, idx change.PhaseIndex, isRevert bool) (*state.Audit, error) {
	var audit *state.Audit
	err := e.DB.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
		a, err := e.State.AuditPhaseStart(ctx, q, idx, isRevert)
		if err != nil {
			return err
		}
		audit = a
		return nil
	})
	return audit, err
}

func isNotFound(err error) bool {
	_, ok := err.(state.NotFoundError)
	return ok
}
