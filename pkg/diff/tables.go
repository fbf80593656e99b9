// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"
	"sort"

	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/change"
)

// diffTables handles every table that exists in new: brand-new tables are
// created outright, existing tables have their columns diffed. Table
// drops are handled separately by diffTableExistence since they only run
// once every other pre-deploy change has been considered.
func diffTables(old, new map[string]catalog.Table, nodrop map[string]bool) (pre, post, renames change.List, err error) {
	keys := sortedMapKeys(new)
	for _, key := range keys {
		nt := new[key]
		ot, existed := old[key]
		if !existed {
			pre = append(pre, &change.RunDDL{Up: createTableSQL(nt), Down: dropTableSQL(nt)})
			continue
		}

		colPre, colPost, colRenames, cerr := diffColumns(ot, nt)
		if cerr != nil {
			return nil, nil, nil, cerr
		}
		renames = append(renames, colRenames...)
		pre = append(pre, colPre...)
		post = append(post, colPost...)
	}
	return pre, post, renames, nil
}

// diffTableExistence handles tables present in old but absent from new,
// i.e. table drops. A table marked nodrop was renamed, not dropped, and no
// drop is emitted for it here; diffTables handles the new key as a new
// table and emits a CREATE TABLE for it.
func diffTableExistence(old, new map[string]catalog.Table, nodrop map[string]bool) (pre, post change.List) {
	for _, key := range sortedMapKeys(old) {
		if _, ok := new[key]; ok || nodrop[key] {
			continue
		}
		ot := old[key]
		post = append(post, &change.RunDDL{Up: dropTableSQL(ot), Down: createTableSQL(ot)})
	}
	return nil, post
}

func createTableSQL(t catalog.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = columnDefSQL(c)
	}
	colList := ""
	for i, c := range cols {
		if i > 0 {
			colList += ", "
		}
		colList += c
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", q2(t.Schema, t.Name), colList)
}

func dropTableSQL(t catalog.Table) string {
	return fmt.Sprintf("DROP TABLE %s", q2(t.Schema, t.Name))
}

func columnDefSQL(c catalog.Column) string {
	def := q(c.Name) + " " + c.Type
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return def
}

// diffColumns splits a table's column changes into the additive set (new
// columns, which can always run pre-deploy since old code just won't know
// about them) and the destructive set (dropped columns, which must wait
// until post-deploy so old code stops referencing them first). Renamed
// columns are detected via PriorName and surfaced as a single
// change.BeginRename per table — see spec §4.1's description of the shim
// view this produces; the corresponding FinishRename is left for a later,
// separate revision rather than generated here.
func diffColumns(old, new catalog.Table) (pre, post, renames change.List, err error) {
	oldByName := map[string]catalog.Column{}
	for _, c := range old.Columns {
		oldByName[c.Name] = c
	}

	renamedFrom := map[string]bool{}
	renameSet := map[string]string{}
	for _, c := range new.Columns {
		if c.PriorName == "" {
			continue
		}
		if _, ok := oldByName[c.PriorName]; ok {
			renameSet[c.PriorName] = c.Name
			renamedFrom[c.PriorName] = true
		}
	}

	newByName := map[string]bool{}
	for _, c := range new.Columns {
		newByName[c.Name] = true
		if c.PriorName != "" && renamedFrom[c.PriorName] {
			continue
		}
		if _, existed := oldByName[c.Name]; !existed {
			pre = append(pre, &change.RunDDL{
				Up:   fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", q2(new.Schema, new.Name), columnDefSQL(c)),
				Down: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", q2(new.Schema, new.Name), q(c.Name)),
			})
		}
	}

	for _, c := range old.Columns {
		if renamedFrom[c.Name] {
			continue
		}
		if !newByName[c.Name] {
			post = append(post, &change.RunDDL{
				Up:   fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", q2(old.Schema, old.Name), q(c.Name)),
				Down: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", q2(old.Schema, old.Name), columnDefSQL(c)),
			})
		}
	}

	if len(renameSet) > 0 {
		renames = append(renames, &change.BeginRename{Table: new.Name, Renames: renameSet})
	}

	sortByRender(pre)
	sortByRender(post)
	return pre, post, renames, nil
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
