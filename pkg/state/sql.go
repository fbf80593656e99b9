// SPDX-License-Identifier: Apache-2.0

package state

// sqlInit creates the migrator's own bookkeeping schema. %[1]s is the
// quoted namespace (pq.QuoteIdentifier); it is idempotent so it can run on
// every `is_set_up` miss without a separate migration-of-the-migrator step.
const sqlInit = `
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[1]s.revisions (
	revision       INTEGER NOT NULL,
	migration_hash BYTEA NOT NULL,
	schema_hash    BYTEA NOT NULL,
	is_deleted     BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),

	PRIMARY KEY (revision, migration_hash, schema_hash)
);

-- Every live (non-tombstoned) revision number is unique.
CREATE UNIQUE INDEX IF NOT EXISTS revisions_live_number ON %[1]s.revisions (revision) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS %[1]s.migration_audit (
	id             SERIAL PRIMARY KEY,
	revision       INTEGER NOT NULL,
	migration_hash BYTEA NOT NULL,
	schema_hash    BYTEA NOT NULL,
	pre_deploy     BOOLEAN NOT NULL,
	change         INTEGER NOT NULL,
	phase          INTEGER NOT NULL,
	is_revert      BOOLEAN NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at    TIMESTAMPTZ
);

-- At most one phase is in flight at a time, across the whole migrator.
-- This is the mutual-exclusion primitive between migrator processes.
CREATE UNIQUE INDEX IF NOT EXISTS migration_audit_one_unfinished
	ON %[1]s.migration_audit ((true)) WHERE finished_at IS NULL;

CREATE TABLE IF NOT EXISTS %[1]s.connections (
	pid           INTEGER PRIMARY KEY,
	revision      INTEGER NOT NULL,
	schema_hash   BYTEA NOT NULL,
	backend_start TIMESTAMPTZ NOT NULL
);
`
