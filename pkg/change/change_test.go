// SPDX-License-Identifier: Apache-2.0

package change_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benkuhn/migrator/pkg/change"
)

type fakeResolver struct {
	columns map[string][]string
	err     error
}

func (f *fakeResolver) TableColumns(_ context.Context, table string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.columns[table], nil
}

func TestRunDDLPhases(t *testing.T) {
	c := &change.RunDDL{Up: "CREATE TABLE users(u_id int);", Down: "DROP TABLE users;"}
	phases := c.Phases()
	require.Len(t, phases, 1)

	assert.Equal(t, change.TxDDL{SQL: c.Up}, phases[0].Up)
	assert.Equal(t, change.TxDDL{SQL: c.Down}, phases[0].Down)
	assert.True(t, phases[0].Up.Transactional())
	assert.False(t, phases[0].Up.IsNoOp())
}

func TestRunDDLIsEmpty(t *testing.T) {
	assert.True(t, (&change.RunDDL{}).IsEmpty())
	assert.False(t, (&change.RunDDL{Up: "x"}).IsEmpty())
}

func TestCreateIndexSQL(t *testing.T) {
	c := &change.CreateIndex{
		Unique: false,
		Name:   "users_email_idx",
		Table:  "users",
		Expr:   "email",
	}
	phases := c.Phases()
	require.Len(t, phases, 1)

	up := phases[0].Up
	assert.False(t, up.Transactional())

	sql, err := up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX CONCURRENTLY IF NOT EXISTS "users_email_idx" on "users"  (email) `, sql)

	down := phases[0].Down
	downSQL, err := down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `DROP INDEX CONCURRENTLY IF EXISTS "users_email_idx"`, downSQL)
}

func TestCreateIndexUniqueAndUsingAndWhere(t *testing.T) {
	c := &change.CreateIndex{
		Unique: true,
		Name:   "idx",
		Table:  "t",
		Expr:   "lower(email)",
		Using:  "btree",
		Where:  "email IS NOT NULL",
	}
	sql, err := c.Phases()[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX CONCURRENTLY IF NOT EXISTS "idx" on "t" USING btree (lower(email)) WHERE email IS NOT NULL`, sql)
}

func TestDropIndexIsCreateIndexReversed(t *testing.T) {
	drop := &change.DropIndex{Name: "idx", Table: "t", Expr: "email"}
	create := &change.CreateIndex{Name: "idx", Table: "t", Expr: "email"}

	dropUp, err := drop.Phases()[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	createDown, err := create.Phases()[0].Down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, createDown, dropUp)

	dropDown, err := drop.Phases()[0].Down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	createUp, err := create.Phases()[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, createUp, dropDown)
}

func TestAddConstraintCheckTwoPhases(t *testing.T) {
	c := &change.AddConstraint{
		Table: "users",
		Name:  "users_email_nonempty",
		Check: "(length(email) > 0)",
	}
	phases := c.Phases()
	require.Len(t, phases, 2)

	up1, err := phases[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" ADD CONSTRAINT "users_email_nonempty" CHECK (length(email) > 0) NOT VALID`, up1)
	assert.True(t, phases[0].Up.Transactional())

	down1, err := phases[0].Down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" DROP CONSTRAINT "users_email_nonempty"`, down1)

	up2, err := phases[1].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" VALIDATE CONSTRAINT "users_email_nonempty"`, up2)

	assert.True(t, phases[1].Down.IsNoOp())
}

func TestAddConstraintForeignKey(t *testing.T) {
	c := &change.AddConstraint{
		Table:      "orders",
		Name:       "orders_user_id_fkey",
		ForeignKey: "user_id",
		References: "users(id)",
	}
	up, err := c.Phases()[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "orders" ADD CONSTRAINT "orders_user_id_fkey" FOREIGN KEY (user_id) REFERENCES users(id) NOT VALID`, up)
}

func TestAddConstraintOnDomain(t *testing.T) {
	c := &change.AddConstraint{
		Domain: "email_address",
		Name:   "email_nonempty",
		Check:  "(length(VALUE) > 0)",
	}
	up, err := c.Phases()[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER DOMAIN "email_address" ADD CONSTRAINT "email_nonempty" CHECK (length(VALUE) > 0) NOT VALID`, up)
}

func TestDropConstraintIsAddConstraintReversed(t *testing.T) {
	c := &change.DropConstraint{Table: "users", Name: "users_email_nonempty", Check: "(length(email) > 0)"}
	phases := c.Phases()
	require.Len(t, phases, 2)

	assert.True(t, phases[0].Up.IsNoOp())
	down1, err := phases[0].Down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" VALIDATE CONSTRAINT "users_email_nonempty"`, down1)

	up2, err := phases[1].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" DROP CONSTRAINT "users_email_nonempty"`, up2)

	down2, err := phases[1].Down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" ADD CONSTRAINT "users_email_nonempty" CHECK (length(email) > 0) NOT VALID`, down2)
}

func TestBeginRenameCreatesView(t *testing.T) {
	c := &change.BeginRename{
		Table:   "users",
		Renames: map[string]string{"u_id": "user_id"},
	}
	phases := c.Phases()
	require.Len(t, phases, 1)

	resolver := &fakeResolver{columns: map[string][]string{
		"users": {"u_id", "email", "mobile"},
	}}
	sql, err := phases[0].Up.Render(context.Background(), resolver, "shim_5")
	require.NoError(t, err)
	assert.Equal(t, `CREATE VIEW "shim_5"."users" AS SELECT "u_id" AS "user_id", "email", "mobile" FROM public."users"`, sql)

	downSQL, err := phases[0].Down.Render(context.Background(), resolver, "shim_5")
	require.NoError(t, err)
	assert.Equal(t, `DROP VIEW "shim_5"."users"`, downSQL)
}

func TestBeginRenameMissingColumnIsSchemaMismatch(t *testing.T) {
	c := &change.BeginRename{Table: "users", Renames: map[string]string{"nope": "user_id"}}
	resolver := &fakeResolver{columns: map[string][]string{"users": {"u_id"}}}
	_, err := c.Phases()[0].Up.Render(context.Background(), resolver, "shim_1")
	require.Error(t, err)
	var mismatch change.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"nope"}, mismatch.Columns)
}

func TestFinishRenamePhases(t *testing.T) {
	c := &change.FinishRename{
		Table:   "users",
		Renames: map[string]string{"u_id": "user_id"},
	}
	phases := c.Phases()
	require.Len(t, phases, 2)

	up1, err := phases[0].Up.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "u_id" TO "user_id"`, up1)

	down1, err := phases[0].Down.Render(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "user_id" TO "u_id"`, down1)

	assert.True(t, phases[1].Up.Transactional())
	resolver := &fakeResolver{columns: map[string][]string{"users": {"user_id", "email"}}}
	downSQL, err := phases[1].Down.Render(context.Background(), resolver, "shim_3")
	require.NoError(t, err)
	assert.Equal(t, `CREATE VIEW "shim_3"."users" AS SELECT "user_id" AS "u_id", "email" FROM public."users"`, downSQL)
}

func TestPhaseIndexCompare(t *testing.T) {
	a := change.PhaseIndex{Revision: 1, PreDeploy: true, Change: 0, Phase: 0}
	b := change.PhaseIndex{Revision: 1, PreDeploy: false, Change: 0, Phase: 0}
	assert.True(t, a.Less(b))

	c := change.PhaseIndex{Revision: 2, PreDeploy: false, Change: 0, Phase: 0}
	assert.True(t, b.Less(c))

	d := change.PhaseIndex{Revision: 1, PreDeploy: true, Change: 1, Phase: 0}
	assert.True(t, a.Less(d))

	e := change.PhaseIndex{Revision: 1, PreDeploy: true, Change: 0, Phase: 1}
	assert.True(t, a.Less(e))
	assert.Equal(t, 0, a.Compare(a))
}
