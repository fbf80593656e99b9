// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"sort"

	"github.com/lib/pq"

	"github.com/benkuhn/migrator/pkg/change"
)

func q(id string) string { return pq.QuoteIdentifier(id) }

func q2(schema, name string) string { return q(schema) + "." + q(name) }

// sortByRender orders a change.List deterministically so repeated diffs of
// the same pair of snapshots always render the same revision file.
func sortByRender(list change.List) {
	sort.SliceStable(list, func(i, j int) bool {
		return renderKey(list[i]) < renderKey(list[j])
	})
}

func renderKey(c change.Change) string {
	switch v := c.(type) {
	case *change.RunDDL:
		return v.Up + v.Down
	case *change.CreateIndex:
		return v.Table + v.Name
	case *change.DropIndex:
		return v.Table + v.Name
	case *change.AddConstraint:
		return v.Table + v.Domain + v.Name
	case *change.DropConstraint:
		return v.Table + v.Domain + v.Name
	case *change.BeginRename:
		return v.Table
	default:
		return c.Kind()
	}
}

// elideEmptyRunDDL drops any *change.RunDDL whose up and down are both
// empty, the no-op result of an alter pass that found nothing to change.
func elideEmptyRunDDL(list change.List) change.List {
	out := make(change.List, 0, len(list))
	for _, c := range list {
		if ddl, ok := c.(*change.RunDDL); ok && ddl.IsEmpty() {
			continue
		}
		out = append(out, c)
	}
	return out
}
