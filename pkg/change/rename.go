// SPDX-License-Identifier: Apache-2.0

package change

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// BeginRename exposes renamed columns through a per-revision shim view
// without touching the underlying table, so old and new application
// binaries can coexist for the lifetime of the revision. FinishRename (in
// a later revision) performs the actual column rename and drops the view.
type BeginRename struct {
	Table   string            `yaml:"table" json:"table"`
	Renames map[string]string `yaml:"renames" json:"renames"`
}

func (*BeginRename) Kind() string { return "begin_rename" }

func (c *BeginRename) Phases() []Phase {
	return []Phase{
		{
			Up:   &createRenameView{Table: c.Table, Renames: c.Renames},
			Down: &dropRenameView{Table: c.Table},
		},
	}
}

// FinishRename performs the column rename on the live table and drops the
// shim view that BeginRename created. Its down direction is the exact
// reverse: rename the columns back, then recreate the (reversed) view.
type FinishRename struct {
	Table   string            `yaml:"table" json:"table"`
	Renames map[string]string `yaml:"renames" json:"renames"`
}

func (*FinishRename) Kind() string { return "finish_rename" }

func (c *FinishRename) Phases() []Phase {
	reversed := make(map[string]string, len(c.Renames))
	for old, new := range c.Renames {
		reversed[new] = old
	}
	return []Phase{
		{
			Up:   TxDDL{SQL: renameColumnsSQL(c.Table, c.Renames)},
			Down: TxDDL{SQL: renameColumnsSQL(c.Table, reversed)},
		},
		{
			Up:   &dropRenameView{Table: c.Table},
			Down: &createRenameView{Table: c.Table, Renames: reversed},
		},
	}
}

func renameColumnsSQL(table string, renames map[string]string) string {
	olds := make([]string, 0, len(renames))
	for old := range renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)

	stmts := make([]string, 0, len(olds))
	for _, old := range olds {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", q(table), q(old), q(renames[old])))
	}
	return strings.Join(stmts, "; ")
}

// createRenameView is the "transactional direction" described in spec
// §4.1: it queries the live column set for Table, and emits a CREATE VIEW
// in the per-revision shim schema aliasing renamed columns to their new
// names. It must run inside the same transaction that commits its audit
// row, so it resolves the live column list at Render time rather than when
// the phase list is built.
type createRenameView struct {
	Table   string
	Renames map[string]string
}

func (*createRenameView) Transactional() bool { return true }
func (*createRenameView) IsNoOp() bool        { return false }

func (c *createRenameView) Render(ctx context.Context, resolver Resolver, shimSchema string) (string, error) {
	cols, err := resolver.TableColumns(ctx, c.Table)
	if err != nil {
		return "", err
	}

	remaining := make(map[string]string, len(c.Renames))
	for old, new := range c.Renames {
		remaining[old] = new
	}

	aliases := make([]string, 0, len(cols))
	for _, col := range cols {
		if newName, ok := remaining[col]; ok {
			aliases = append(aliases, fmt.Sprintf("%s AS %s", q(col), q(newName)))
			delete(remaining, col)
		} else {
			aliases = append(aliases, q(col))
		}
	}

	if len(remaining) > 0 {
		missing := make([]string, 0, len(remaining))
		for old := range remaining {
			missing = append(missing, old)
		}
		sort.Strings(missing)
		return "", SchemaMismatchError{Table: c.Table, Columns: missing}
	}

	return fmt.Sprintf("CREATE VIEW %s.%s AS SELECT %s FROM public.%s",
		q(shimSchema), q(c.Table), strings.Join(aliases, ", "), q(c.Table)), nil
}

// dropRenameView drops the shim view created by createRenameView.
type dropRenameView struct {
	Table string
}

func (*dropRenameView) Transactional() bool { return true }
func (*dropRenameView) IsNoOp() bool        { return false }

func (d *dropRenameView) Render(_ context.Context, _ Resolver, shimSchema string) (string, error) {
	return fmt.Sprintf("DROP VIEW %s.%s", q(shimSchema), q(d.Table)), nil
}
