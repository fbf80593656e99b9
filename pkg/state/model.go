// SPDX-License-Identifier: Apache-2.0

package state

import (
	"time"

	"github.com/benkuhn/migrator/pkg/change"
)

// Audit is one row of migration_audit: a single phase execution attempt,
// completed or in flight.
type Audit struct {
	ID         int64
	Index      change.PhaseIndex
	IsRevert   bool
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Unfinished reports whether this attempt has not yet recorded an end time.
func (a Audit) Unfinished() bool {
	return a.FinishedAt == nil
}

// Revision is the stored counterpart of a repo.Revision: the
// (revision, migration_hash, schema_hash) triple the database has recorded,
// plus its tombstone flag.
type Revision struct {
	Number        int
	MigrationHash []byte
	SchemaHash    []byte
	IsDeleted     bool
}

// AppConnection is one row of the connections table: an observational
// record of which revision a live backend is pinned to.
type AppConnection struct {
	PID          int
	Revision     int
	SchemaHash   []byte
	BackendStart time.Time
}
