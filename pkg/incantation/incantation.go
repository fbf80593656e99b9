// SPDX-License-Identifier: Apache-2.0

// Package incantation renders the connect-time SQL (Component H) that
// application backends run once per connection: it prepends the revision's
// shim schema to search_path so rename-sensitive reads tolerate both old
// and new column names, then upserts a row recording which revision and
// schema hash this backend is running against.
package incantation

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lib/pq"
)

// shimSchemaName must match the naming scheme the executor and driver use
// when creating/dropping a revision's shim schema.
func shimSchemaName(revision int) string {
	return fmt.Sprintf("migrator_shim_%d", revision)
}

// Render produces the SQL a client runs at connect time for revision, per
// spec §4.8. ns is the migrator status schema (default "migrator_status")
// that owns the connections table.
func Render(ns string, revision int, schemaHash []byte) string {
	shimPrefix := pq.QuoteLiteral(shimSchemaName(revision) + ",")
	connections := pq.QuoteIdentifier(ns) + ".connections"

	return fmt.Sprintf(`SELECT set_config('search_path', %s||current_setting('search_path'), false);
INSERT INTO %s (pid, revision, schema_hash, backend_start)
VALUES (pg_backend_pid(), %d, decode('%s', 'hex'),
        (SELECT backend_start FROM pg_stat_activity WHERE pid = pg_backend_pid()))
ON CONFLICT (pid) DO UPDATE SET revision = excluded.revision, schema_hash = excluded.schema_hash, backend_start = excluded.backend_start;
`, shimPrefix, connections, revision, hex.EncodeToString(schemaHash))
}

// Write renders the incantation for revision and writes it to path,
// overwriting whatever was there (the generator calls this once per
// revision() run, always for the newest revision).
func Write(path, ns string, revision int, schemaHash []byte) error {
	return os.WriteFile(path, []byte(Render(ns, revision, schemaHash)), 0o644)
}
