// SPDX-License-Identifier: Apache-2.0

package executor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benkuhn/migrator/pkg/change"
	"github.com/benkuhn/migrator/pkg/db"
	"github.com/benkuhn/migrator/pkg/executor"
	"github.com/benkuhn/migrator/pkg/state"
)

func testIndex() change.PhaseIndex {
	return change.PhaseIndex{Revision: 1, MigrationHash: []byte("m"), SchemaHash: []byte("s"), PreDeploy: true, Change: 0, Phase: 0}
}

// auditRow builds the column values AuditPhaseStart/GetAudit's query scans
// into a state.Audit, with finishedAt nil meaning "still in flight".
func auditRow(finishedAt interface{}) db.Row {
	i := testIndex()
	return db.StaticRow(int64(1), i.Revision, i.MigrationHash, i.SchemaHash, i.PreDeploy, i.Change, i.Phase, false, time.Now(), finishedAt)
}

func TestRunTransactionalExecutesInsideOneTransaction(t *testing.T) {
	fake := &db.FakeDB{RowFunc: func(string, ...interface{}) db.Row { return auditRow(nil) }}
	st := state.New(fake, "migrator_status")
	ex := executor.New(fake, st, nil)

	dir := change.TxDDL{SQL: "ALTER TABLE t ADD COLUMN x int"}
	require.NoError(t, ex.Run(context.Background(), testIndex(), false, dir))

	require.Len(t, fake.Statements, 3)
	assert.Contains(t, fake.Statements[0], "INSERT INTO")
	assert.Equal(t, "ALTER TABLE t ADD COLUMN x int", fake.Statements[1])
	assert.Contains(t, fake.Statements[2], "UPDATE")
}

func TestRunNoOpWritesOneFinishedRow(t *testing.T) {
	fake := &db.FakeDB{RowFunc: func(string, ...interface{}) db.Row { return auditRow(nil) }}
	st := state.New(fake, "migrator_status")
	ex := executor.New(fake, st, nil)

	require.NoError(t, ex.Run(context.Background(), testIndex(), false, change.NoOp{}))
	require.Len(t, fake.Statements, 2)
	assert.Contains(t, fake.Statements[0], "INSERT INTO")
	assert.Contains(t, fake.Statements[1], "UPDATE")
}

func TestRunIdempotentFreshStartsThenRunsOutsideTxThenFinishes(t *testing.T) {
	fake := &db.FakeDB{RowFunc: func(query string, _ ...interface{}) db.Row {
		if strings.Contains(query, "WHERE revision = $1") {
			return db.NoRows()
		}
		return auditRow(nil)
	}}
	st := state.New(fake, "migrator_status")
	ex := executor.New(fake, st, nil)

	dir := change.IdempotentDDL{SQL: "CREATE INDEX CONCURRENTLY IF NOT EXISTS idx ON t (x)"}
	require.NoError(t, ex.Run(context.Background(), testIndex(), false, dir))

	require.Len(t, fake.Statements, 4)
	assert.Contains(t, fake.Statements[0], "WHERE revision = $1")
	assert.Contains(t, fake.Statements[1], "INSERT INTO")
	assert.Equal(t, "CREATE INDEX CONCURRENTLY IF NOT EXISTS idx ON t (x)", fake.Statements[2])
	assert.Contains(t, fake.Statements[3], "UPDATE")
}

func TestRunIdempotentResumesExistingUnfinishedRow(t *testing.T) {
	fake := &db.FakeDB{RowFunc: func(query string, _ ...interface{}) db.Row {
		if strings.Contains(query, "WHERE revision = $1") {
			return auditRow(nil)
		}
		return auditRow(nil)
	}}
	st := state.New(fake, "migrator_status")
	ex := executor.New(fake, st, nil)

	dir := change.IdempotentDDL{SQL: "DROP INDEX CONCURRENTLY IF EXISTS idx"}
	require.NoError(t, ex.Run(context.Background(), testIndex(), false, dir))

	require.Len(t, fake.Statements, 3)
	assert.Contains(t, fake.Statements[0], "WHERE revision = $1")
	assert.Equal(t, "DROP INDEX CONCURRENTLY IF EXISTS idx", fake.Statements[1])
	assert.Contains(t, fake.Statements[2], "UPDATE")
}

func TestRunIdempotentRejectsAlreadyFinished(t *testing.T) {
	now := time.Now()
	fake := &db.FakeDB{RowFunc: func(query string, _ ...interface{}) db.Row {
		if strings.Contains(query, "WHERE revision = $1") {
			return auditRow(&now)
		}
		return auditRow(nil)
	}}
	st := state.New(fake, "migrator_status")
	ex := executor.New(fake, st, nil)

	dir := change.IdempotentDDL{SQL: "DROP INDEX CONCURRENTLY IF EXISTS idx"}
	err := ex.Run(context.Background(), testIndex(), false, dir)
	require.Error(t, err)
}
