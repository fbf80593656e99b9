// SPDX-License-Identifier: Apache-2.0

package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benkuhn/migrator/pkg/db"
)

func TestFakeDBRecordsStatements(t *testing.T) {
	fake := &db.FakeDB{}

	_, err := fake.ExecContext(context.Background(), "CREATE TABLE t(x int)")
	require.NoError(t, err)

	assert.Equal(t, []string{"CREATE TABLE t(x int)"}, fake.Statements)
}

func TestFakeDBWithTransactionRunsCallback(t *testing.T) {
	fake := &db.FakeDB{}
	var ran bool

	err := fake.WithTransaction(context.Background(), func(ctx context.Context, q db.Queryer) error {
		ran = true
		_, execErr := q.ExecContext(ctx, "INSERT INTO t VALUES (1)")
		return execErr
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"INSERT INTO t VALUES (1)"}, fake.Statements)
}

func TestFakeDBExecErrPropagates(t *testing.T) {
	fake := &db.FakeDB{ExecErr: assert.AnError}

	_, err := fake.ExecContext(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFakeDBQueryContextUsesRowsFunc(t *testing.T) {
	fake := &db.FakeDB{RowsFunc: func(string, ...interface{}) db.Rows {
		return db.SliceRows([][]interface{}{{1}, {2}})
	}}

	rows, err := fake.QueryContext(context.Background(), "SELECT n FROM t")
	require.NoError(t, err)
	defer rows.Close()

	var got []int
	for rows.Next() {
		var n int
		require.NoError(t, rows.Scan(&n))
		got = append(got, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{1, 2}, got)
}

func TestFakeDBQueryContextDefaultsToEmpty(t *testing.T) {
	fake := &db.FakeDB{}

	rows, err := fake.QueryContext(context.Background(), "SELECT n FROM t")
	require.NoError(t, err)
	assert.False(t, rows.Next())
}
