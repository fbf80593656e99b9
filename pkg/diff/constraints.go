// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/change"
)

// diffConstraints mirrors diffIndexes: new constraints are added
// pre-deploy (as NOT VALID then validated, per change.AddConstraint's own
// two-phase split), removed constraints are dropped post-deploy, and a
// constraint whose definition changed is dropped and re-added rather than
// altered in place.
func diffConstraints(old, new map[string]catalog.Constraint) (pre, post change.List) {
	for _, key := range sortedMapKeys(new) {
		nc := new[key]
		if oc, ok := old[key]; ok {
			if constraintEqual(oc, nc) {
				continue
			}
			pre = append(pre, constraintToDrop(oc), constraintToAdd(nc))
			continue
		}
		pre = append(pre, constraintToAdd(nc))
	}
	for _, key := range sortedMapKeys(old) {
		oc := old[key]
		if _, ok := new[key]; ok || oc.NoDrop {
			continue
		}
		post = append(post, constraintToDrop(oc))
	}
	return pre, post
}

func constraintEqual(a, b catalog.Constraint) bool {
	return a.Kind == b.Kind && a.Check == b.Check &&
		a.ForeignKey == b.ForeignKey && a.References == b.References
}

func constraintToAdd(c catalog.Constraint) *change.AddConstraint {
	add := &change.AddConstraint{Table: c.Table, Domain: c.Domain, Name: c.Name}
	if c.Kind == catalog.ConstraintForeignKey {
		add.ForeignKey = c.ForeignKey
		add.References = c.References
	} else {
		add.Check = c.Check
	}
	return add
}

func constraintToDrop(c catalog.Constraint) *change.DropConstraint {
	drop := &change.DropConstraint{Table: c.Table, Domain: c.Domain, Name: c.Name}
	if c.Kind == catalog.ConstraintForeignKey {
		drop.ForeignKey = c.ForeignKey
		drop.References = c.References
	} else {
		drop.Check = c.Check
	}
	return drop
}
