// SPDX-License-Identifier: Apache-2.0

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/change"
	"github.com/benkuhn/migrator/pkg/diff"
)

func emptySnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Schemas:     map[string]catalog.Schema{},
		Sequences:   map[string]catalog.Sequence{},
		Tables:      map[string]catalog.Table{},
		Views:       map[string]catalog.View{},
		Functions:   map[string]catalog.Function{},
		Indexes:     map[string]catalog.Index{},
		Constraints: map[string]catalog.Constraint{},
	}
}

func kindsOf(list change.List) []string {
	kinds := make([]string, len(list))
	for i, c := range list {
		kinds[i] = c.Kind()
	}
	return kinds
}

func TestDiffAddsColumnPreDeploy(t *testing.T) {
	old := emptySnapshot()
	old.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{{Name: "id", Type: "integer", Position: 1}},
	}
	new := emptySnapshot()
	new.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{
			{Name: "id", Type: "integer", Position: 1},
			{Name: "email", Type: "text", Nullable: true, Position: 2},
		},
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	require.Len(t, pre, 1)
	assert.Empty(t, post)
	ddl, ok := pre[0].(*change.RunDDL)
	require.True(t, ok)
	assert.Contains(t, ddl.Up, "ADD COLUMN")
	assert.Contains(t, ddl.Up, `"email"`)
}

func TestDiffDropsColumnPostDeploy(t *testing.T) {
	old := emptySnapshot()
	old.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{
			{Name: "id", Type: "integer", Position: 1},
			{Name: "legacy", Type: "text", Nullable: true, Position: 2},
		},
	}
	new := emptySnapshot()
	new.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{{Name: "id", Type: "integer", Position: 1}},
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, pre)
	require.Len(t, post, 1)
	ddl, ok := post[0].(*change.RunDDL)
	require.True(t, ok)
	assert.Contains(t, ddl.Up, "DROP COLUMN")
	assert.Contains(t, ddl.Up, `"legacy"`)
}

func TestDiffColumnRenameProducesBeginRename(t *testing.T) {
	old := emptySnapshot()
	old.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{{Name: "mobile", Type: "text", Position: 1}},
	}
	new := emptySnapshot()
	new.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{{Name: "phone", PriorName: "mobile", Type: "text", Position: 1}},
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, post)
	require.Len(t, pre, 1)
	rename, ok := pre[0].(*change.BeginRename)
	require.True(t, ok)
	assert.Equal(t, "users", rename.Table)
	assert.Equal(t, map[string]string{"mobile": "phone"}, rename.Renames)
}

func TestDiffNewTableIsCreatedPreDeploy(t *testing.T) {
	old := emptySnapshot()
	new := emptySnapshot()
	new.Tables["public.orders"] = catalog.Table{
		Schema: "public", Name: "orders",
		Columns: []catalog.Column{{Name: "id", Type: "bigint", Position: 1}},
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, post)
	require.Len(t, pre, 1)
	ddl := pre[0].(*change.RunDDL)
	assert.Contains(t, ddl.Up, "CREATE TABLE")
	assert.Contains(t, ddl.Down, "DROP TABLE")
}

func TestDiffDroppedTableIsDroppedPostDeploy(t *testing.T) {
	old := emptySnapshot()
	old.Tables["public.orders"] = catalog.Table{
		Schema: "public", Name: "orders",
		Columns: []catalog.Column{{Name: "id", Type: "bigint", Position: 1}},
	}
	new := emptySnapshot()

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, pre)
	require.Len(t, post, 1)
	ddl := post[0].(*change.RunDDL)
	assert.Contains(t, ddl.Up, "DROP TABLE")
}

func TestDiffIndexCreateAndDrop(t *testing.T) {
	old := emptySnapshot()
	old.Indexes["public.users_mobile_idx"] = catalog.Index{
		Schema: "public", Table: "users", Name: "users_mobile_idx", Columns: []string{"mobile"}, Using: "btree",
	}
	new := emptySnapshot()
	new.Indexes["public.users_email_idx"] = catalog.Index{
		Schema: "public", Table: "users", Name: "users_email_idx", Columns: []string{"email"}, Using: "btree",
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	require.Len(t, pre, 1)
	require.Len(t, post, 1)
	assert.Equal(t, "create_index", pre[0].Kind())
	assert.Equal(t, "drop_index", post[0].Kind())
}

func TestDiffConstraintAdditionIsTwoPhaseAddConstraint(t *testing.T) {
	old := emptySnapshot()
	new := emptySnapshot()
	new.Constraints["public.orders.orders_total_check"] = catalog.Constraint{
		Schema: "public", Table: "orders", Name: "orders_total_check",
		Kind: catalog.ConstraintCheck, Check: "CHECK (total >= 0)",
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, post)
	require.Len(t, pre, 1)
	add, ok := pre[0].(*change.AddConstraint)
	require.True(t, ok)
	assert.Len(t, add.Phases(), 2)
}

func TestDiffForeignKeyConstraintSplitsColumnsFromReferences(t *testing.T) {
	old := emptySnapshot()
	new := emptySnapshot()
	new.Constraints["public.orders.orders_user_id_fkey"] = catalog.Constraint{
		Schema: "public", Table: "orders", Name: "orders_user_id_fkey",
		Kind: catalog.ConstraintForeignKey, ForeignKey: "user_id", References: "REFERENCES users(id)",
	}

	pre, _, err := diff.Diff(old, new)
	require.NoError(t, err)
	require.Len(t, pre, 1)
	add := pre[0].(*change.AddConstraint)
	assert.Equal(t, "user_id", add.ForeignKey)
	assert.Equal(t, "REFERENCES users(id)", add.References)
}

func TestDiffUnparseableIndexIsUnsupported(t *testing.T) {
	old := emptySnapshot()
	new := emptySnapshot()
	new.Indexes["public.users_weird_idx"] = catalog.Index{
		Schema: "public", Table: "users", Name: "users_weird_idx",
	}

	_, _, err := diff.Diff(old, new)
	require.Error(t, err)
	var unsupported diff.UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestDiffSequenceSkipsImplicitBigintBounds(t *testing.T) {
	old := emptySnapshot()
	old.Sequences["public.orders_id_seq"] = catalog.Sequence{
		Schema: "public", Name: "orders_id_seq", DataType: "bigint",
		MinValue: 1, MaxValue: 9223372036854775807, Increment: 1,
	}
	new := emptySnapshot()
	new.Sequences["public.orders_id_seq"] = catalog.Sequence{
		Schema: "public", Name: "orders_id_seq", DataType: "bigint",
		MinValue: 1, MaxValue: -9223372036854775808, Increment: 1,
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, pre)
	assert.Empty(t, post)
}

func TestDiffSequenceIncrementChangeIsSymmetric(t *testing.T) {
	old := emptySnapshot()
	old.Sequences["public.orders_id_seq"] = catalog.Sequence{
		Schema: "public", Name: "orders_id_seq", DataType: "bigint", Increment: 1,
	}
	new := emptySnapshot()
	new.Sequences["public.orders_id_seq"] = catalog.Sequence{
		Schema: "public", Name: "orders_id_seq", DataType: "bigint", Increment: 2,
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, post)
	require.Len(t, pre, 1)
	ddl := pre[0].(*change.RunDDL)
	assert.Contains(t, ddl.Up, "INCREMENT BY 2")
	assert.Contains(t, ddl.Down, "INCREMENT BY 1")
}

func TestDiffRenamedTableIsNotAlsoDropped(t *testing.T) {
	old := emptySnapshot()
	old.Tables["public.accounts"] = catalog.Table{
		Schema: "public", Name: "accounts",
		Columns: []catalog.Column{{Name: "id", Type: "bigint", Position: 1}},
	}
	new := emptySnapshot()
	new.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users", PriorName: "public.accounts",
		Columns: []catalog.Column{{Name: "id", Type: "bigint", Position: 1}},
	}

	pre, post, err := diff.Diff(old, new)
	require.NoError(t, err)
	assert.Empty(t, post, "a renamed table must not also show up as a drop")
	require.Len(t, pre, 1)
	ddl := pre[0].(*change.RunDDL)
	assert.Contains(t, ddl.Up, "CREATE TABLE")
}

func TestDiffNoChangesProducesEmptyLists(t *testing.T) {
	snap := emptySnapshot()
	snap.Tables["public.users"] = catalog.Table{
		Schema: "public", Name: "users",
		Columns: []catalog.Column{{Name: "id", Type: "bigint", Position: 1}},
	}

	pre, post, err := diff.Diff(snap, snap)
	require.NoError(t, err)
	assert.Empty(t, pre)
	assert.Empty(t, post)
}
