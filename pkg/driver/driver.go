// SPDX-License-Identifier: Apache-2.0

// Package driver runs the upgrade and downgrade loops (Component F): pick a
// resume point from the audit log, run phases through the executor in
// order, and create/drop shim schemas at revision boundaries.
package driver

import (
	"context"
	"fmt"

	"github.com/benkuhn/migrator/pkg/db"
	"github.com/benkuhn/migrator/pkg/executor"
	"github.com/benkuhn/migrator/pkg/repo"
	"github.com/benkuhn/migrator/pkg/state"
)

// Driver wires the planner, executor, and audit store into the upgrade and
// downgrade loops.
type Driver struct {
	DB       db.DB
	State    *state.State
	Executor *executor.Executor
}

func New(conn db.DB, st *state.State, ex *executor.Executor) *Driver {
	return &Driver{DB: conn, State: st, Executor: ex}
}

// RevisionConflictError is raised when the pre-run consistency check finds
// a revision whose on-disk hashes disagree with the database's.
type RevisionConflictError = repo.RevisionConflictError

// checkConsistency verifies on-disk revisions match the database for every
// revision number the database already knows about.
func (d *Driver) checkConsistency(ctx context.Context, revisions []repo.Revision) error {
	inDB, err := d.State.GetRevisions(ctx)
	if err != nil {
		return err
	}
	return repo.CheckConsistency(revisions, inDB)
}

// resumeSlice derives the upgrade resume point from the latest audit row,
// per spec §4.4: if nothing has run yet, start from the beginning; if the
// last attempt finished forward, resume strictly after it; if the last
// attempt was a revert, re-run that same index forward.
func resumeSlice(last *state.Audit) repo.PhaseSlice {
	if last == nil {
		return repo.PhaseSlice{}
	}
	idx := last.Index
	return repo.PhaseSlice{Start: &idx, StartInclusive: last.IsRevert}
}

// Upgrade runs every phase from the resume point to the end of the on-disk
// revision list.
func (d *Driver) Upgrade(ctx context.Context, revisions []repo.Revision) error {
	if err := d.checkConsistency(ctx, revisions); err != nil {
		return err
	}

	last, err := d.State.GetLatestAudit(ctx)
	if err != nil {
		return err
	}

	tuples := repo.GetPhases(revisions, resumeSlice(last))
	for _, t := range tuples {
		if err := d.runUpgradeTuple(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runUpgradeTuple(ctx context.Context, t repo.PhaseTuple) error {
	first, _ := repo.FirstIndex(t.Revision)
	if t.Index.Compare(first) == 0 {
		if err := d.DB.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
			if err := d.State.CreateShimSchema(ctx, q, t.Revision.Number); err != nil {
				return err
			}
			_, err := d.State.UpsertRevision(ctx, q, state.Revision{
				Number:        t.Revision.Number,
				MigrationHash: t.Revision.MigrationHash,
				SchemaHash:    t.Revision.SchemaHash,
			})
			return err
		}); err != nil {
			return err
		}
	}

	if err := d.Executor.Run(ctx, t.Index, false, t.Phase.Up); err != nil {
		return err
	}

	last, _ := repo.LastIndex(t.Revision)
	if t.Index.Compare(last) == 0 {
		if err := d.DB.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
			return d.State.DropShimSchema(ctx, q, t.Revision.Number)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Downgrade runs phases in reverse down to (and including undoing) revision
// target+1, leaving the database at the state produced through revision
// target.
func (d *Driver) Downgrade(ctx context.Context, revisions []repo.Revision, target int) error {
	if err := d.checkConsistency(ctx, revisions); err != nil {
		return err
	}

	byNumber := map[int]*repo.Revision{}
	for i := range revisions {
		byNumber[revisions[i].Number] = &revisions[i]
	}

	nextRev, ok := byNumber[target+1]
	if !ok {
		return fmt.Errorf("no revision %d to downgrade from", target+1)
	}
	startIdx, ok := repo.FirstIndex(nextRev)
	if !ok {
		return fmt.Errorf("revision %d has no phases", target+1)
	}

	slice := repo.PhaseSlice{Start: &startIdx, StartInclusive: true}

	last, err := d.State.GetLatestAudit(ctx)
	if err != nil {
		return err
	}
	if last != nil {
		endIdx := last.Index
		slice.End = &endIdx
		slice.EndInclusive = !last.IsRevert
	}

	tuples := repo.Reversed(repo.GetPhases(revisions, slice))
	for _, t := range tuples {
		if err := d.runDowngradeTuple(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) runDowngradeTuple(ctx context.Context, t repo.PhaseTuple) error {
	last, _ := repo.LastIndex(t.Revision)
	if t.Index.Compare(last) == 0 {
		if err := d.DB.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
			return d.State.CreateShimSchema(ctx, q, t.Revision.Number)
		}); err != nil {
			return err
		}
	}

	if err := d.Executor.Run(ctx, t.Index, true, t.Phase.Down); err != nil {
		return err
	}

	first, _ := repo.FirstIndex(t.Revision)
	if t.Index.Compare(first) == 0 {
		if err := d.DB.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
			return d.State.DropShimSchema(ctx, q, t.Revision.Number)
		}); err != nil {
			return err
		}
	}
	return nil
}
