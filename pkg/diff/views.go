// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"

	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/change"
)

// diffViews treats a changed definition as DROP + CREATE rather than
// CREATE OR REPLACE, since CREATE OR REPLACE VIEW can't change a view's
// column set and this tool has no way to know in advance whether a given
// edit will need to.
func diffViews(old, new map[string]catalog.View, nodrop map[string]bool) (pre, post change.List) {
	for _, key := range sortedMapKeys(new) {
		nv := new[key]
		if ov, ok := old[key]; ok {
			if ov.Definition == nv.Definition {
				continue
			}
			pre = append(pre, &change.RunDDL{
				Up:   dropViewSQL(ov) + "; " + createViewSQL(nv),
				Down: dropViewSQL(nv) + "; " + createViewSQL(ov),
			})
			continue
		}
		pre = append(pre, &change.RunDDL{Up: createViewSQL(nv), Down: dropViewSQL(nv)})
	}
	for _, key := range sortedMapKeys(old) {
		ov := old[key]
		if _, ok := new[key]; ok || nodrop[key] {
			continue
		}
		post = append(post, &change.RunDDL{Up: dropViewSQL(ov), Down: createViewSQL(ov)})
	}
	return pre, post
}

func createViewSQL(v catalog.View) string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", q2(v.Schema, v.Name), v.Definition)
}

func dropViewSQL(v catalog.View) string {
	return fmt.Sprintf("DROP VIEW %s", q2(v.Schema, v.Name))
}

// diffFunctions treats any definition change as a CREATE OR REPLACE,
// since pg_get_functiondef already renders the full CREATE statement.
func diffFunctions(old, new map[string]catalog.Function) (pre, post change.List) {
	for _, key := range sortedMapKeys(new) {
		nf := new[key]
		of, existed := old[key]
		if existed && of.Definition == nf.Definition {
			continue
		}
		down := dropFunctionSQL(nf)
		if existed {
			down = of.Definition
		}
		pre = append(pre, &change.RunDDL{Up: nf.Definition, Down: down})
	}
	for _, key := range sortedMapKeys(old) {
		of := old[key]
		if _, ok := new[key]; ok {
			continue
		}
		post = append(post, &change.RunDDL{Up: dropFunctionSQL(of), Down: of.Definition})
	}
	return pre, post
}

func dropFunctionSQL(f catalog.Function) string {
	return fmt.Sprintf("DROP FUNCTION %s(%s)", q2(f.Schema, f.Name), f.Arguments)
}
