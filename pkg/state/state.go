// SPDX-License-Identifier: Apache-2.0

// Package state is the durable audit store (Component C): the
// migration_audit, revisions, and connections tables, and the queries the
// driver and executor need against them.
package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/benkuhn/migrator/pkg/change"
	"github.com/benkuhn/migrator/pkg/db"
)

// advisoryLockKey is an arbitrary constant distinguishing CreateSchema's
// lock from any other use of the advisory-lock namespace.
const advisoryLockKey int64 = 0x6d6967726174_6f72

// State wraps the migrator's own schema, namespaced so it can live
// alongside the application schema it migrates.
type State struct {
	db     db.DB
	schema string
}

func New(conn db.DB, schema string) *State {
	return &State{db: conn, schema: schema}
}

// IsSetUp reports whether the migrator schema already exists.
func (s *State) IsSetUp(ctx context.Context) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`, s.schema)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateSchema idempotently creates the revisions, migration_audit, and
// connections tables. It takes an advisory lock first so concurrent
// first-run migrators don't race on CREATE TABLE.
func (s *State) CreateSchema(ctx context.Context) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, q db.Queryer) error {
		if _, err := q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, fmt.Sprintf(sqlInit, pq.QuoteIdentifier(s.schema)))
		return err
	})
}

func (s *State) table(name string) string {
	return pq.QuoteIdentifier(s.schema) + "." + name
}

// GetLatestAudit returns the most recent audit row by id, or nil if none exist.
func (s *State) GetLatestAudit(ctx context.Context) (*Audit, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, revision, migration_hash, schema_hash, pre_deploy, change, phase, is_revert, started_at, finished_at
		FROM %s ORDER BY id DESC LIMIT 1
	`, s.table("migration_audit")))
	return scanAudit(row)
}

// GetLastFinished returns the most recent audit row with a non-null
// finished_at, or nil if none exist.
func (s *State) GetLastFinished(ctx context.Context) (*Audit, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, revision, migration_hash, schema_hash, pre_deploy, change, phase, is_revert, started_at, finished_at
		FROM %s WHERE finished_at IS NOT NULL ORDER BY id DESC LIMIT 1
	`, s.table("migration_audit")))
	return scanAudit(row)
}

// GetAudit locates a specific prior attempt by its phase index and revert flag.
func (s *State) GetAudit(ctx context.Context, idx change.PhaseIndex, isRevert bool) (*Audit, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, revision, migration_hash, schema_hash, pre_deploy, change, phase, is_revert, started_at, finished_at
		FROM %s
		WHERE revision = $1 AND migration_hash = $2 AND schema_hash = $3
		  AND pre_deploy = $4 AND change = $5 AND phase = $6 AND is_revert = $7
		ORDER BY id DESC LIMIT 1
	`, s.table("migration_audit")),
		idx.Revision, idx.MigrationHash, idx.SchemaHash, idx.PreDeploy, idx.Change, idx.Phase, isRevert)
	audit, err := scanAudit(row)
	if err != nil {
		return nil, err
	}
	if audit == nil {
		return nil, NotFoundError{What: "audit row"}
	}
	return audit, nil
}

// AuditPhaseStart inserts the start-of-attempt audit row. Its insert races
// with any other migrator process via migration_audit_one_unfinished: if
// another process already has an unfinished row, this fails with a unique
// violation, which the caller should treat as fatal.
func (s *State) AuditPhaseStart(ctx context.Context, q db.Queryer, idx change.PhaseIndex, isRevert bool) (*Audit, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (revision, migration_hash, schema_hash, pre_deploy, change, phase, is_revert, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, revision, migration_hash, schema_hash, pre_deploy, change, phase, is_revert, started_at, finished_at
	`, s.table("migration_audit")),
		idx.Revision, idx.MigrationHash, idx.SchemaHash, idx.PreDeploy, idx.Change, idx.Phase, isRevert)
	audit, err := scanAudit(row)
	if err != nil {
		return nil, err
	}
	return audit, nil
}

// AuditPhaseEnd records the completion of an attempt. It fails if the row
// is already terminal, guarding against double-commit.
func (s *State) AuditPhaseEnd(ctx context.Context, q db.Queryer, audit *Audit) error {
	res, err := q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET finished_at = now() WHERE id = $1 AND finished_at IS NULL
	`, s.table("migration_audit")), audit.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return AlreadyTerminalError{AuditID: audit.ID}
	}
	return nil
}

// UpsertRevision inserts the revision row if absent. A conflict on the same
// revision number with a different hash pair raises RevisionConflict.
func (s *State) UpsertRevision(ctx context.Context, q db.Queryer, rev Revision) (*Revision, error) {
	existing, err := s.getRevisionByNumber(ctx, q, rev.Number)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil && !bytesEqual(existing.MigrationHash, rev.MigrationHash, existing.SchemaHash, rev.SchemaHash) {
		return nil, RevisionConflict{Revision: rev.Number}
	}

	_, err = q.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (revision, migration_hash, schema_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (revision, migration_hash, schema_hash) DO NOTHING
	`, s.table("revisions")), rev.Number, rev.MigrationHash, rev.SchemaHash)
	if err != nil {
		return nil, err
	}

	return s.getRevisionByNumber(ctx, q, rev.Number)
}

func (s *State) getRevisionByNumber(ctx context.Context, q db.Queryer, number int) (*Revision, error) {
	row := q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT revision, migration_hash, schema_hash, is_deleted FROM %s WHERE revision = $1 AND NOT is_deleted
	`, s.table("revisions")), number)
	var r Revision
	if err := row.Scan(&r.Number, &r.MigrationHash, &r.SchemaHash, &r.IsDeleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, NotFoundError{What: "revision"}
		}
		return nil, err
	}
	return &r, nil
}

// GetRevisions returns all non-deleted revisions, keyed by number.
func (s *State) GetRevisions(ctx context.Context) (map[int]Revision, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT revision, migration_hash, schema_hash, is_deleted FROM %s WHERE NOT is_deleted
	`, s.table("revisions")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]Revision{}
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.Number, &r.MigrationHash, &r.SchemaHash, &r.IsDeleted); err != nil {
			return nil, err
		}
		out[r.Number] = r
	}
	return out, rows.Err()
}

// GetConnections returns every row of the connections table, ordered by
// pid, so an operator can see which revisions live application backends
// are currently pinned to. Read-only from the migrator's side: application
// clients own the upsert (see pkg/incantation.Render).
func (s *State) GetConnections(ctx context.Context) ([]AppConnection, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT pid, revision, schema_hash, backend_start FROM %s ORDER BY pid
	`, s.table("connections")))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppConnection
	for rows.Next() {
		var c AppConnection
		if err := rows.Scan(&c.PID, &c.Revision, &c.SchemaHash, &c.BackendStart); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ShimSchemaName is the per-revision namespace exposing renamed-column views.
func ShimSchemaName(revision int) string {
	return fmt.Sprintf("migrator_shim_%d", revision)
}

// CreateShimSchema creates the per-revision view namespace immediately
// before the first phase of a revision runs.
func (s *State) CreateShimSchema(ctx context.Context, q db.Queryer, revision int) error {
	_, err := q.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(ShimSchemaName(revision)))
	return err
}

// DropShimSchema drops the per-revision view namespace immediately after the
// last phase of a revision runs. It does not cascade: the contract is that
// FinishRename phases have already dropped every view the schema held.
func (s *State) DropShimSchema(ctx context.Context, q db.Queryer, revision int) error {
	_, err := q.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+pq.QuoteIdentifier(ShimSchemaName(revision)))
	return err
}

func scanAudit(row db.Row) (*Audit, error) {
	var a Audit
	var idx change.PhaseIndex
	err := row.Scan(&a.ID, &idx.Revision, &idx.MigrationHash, &idx.SchemaHash, &idx.PreDeploy, &idx.Change, &idx.Phase, &a.IsRevert, &a.StartedAt, &a.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Index = idx
	return &a, nil
}

func isNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

func bytesEqual(a1, a2, b1, b2 []byte) bool {
	return string(a1) == string(a2) && string(b1) == string(b2)
}
