// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"strings"

	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/change"
)

// diffIndexes classifies every index by presence: new-only indexes are
// created pre-deploy (so they're ready before the code that needs them
// deploys), old-only indexes are dropped post-deploy. An index present in
// both with a different definition is treated as drop-then-create rather
// than an in-place alter, since Postgres has no ALTER INDEX for shape
// changes.
//
// catalog.parseIndexDef parses indexdef through the real grammar, so
// expression indexes round-trip like any other. An index that still comes
// back without a Using (an indexdef catalog's parser rejects outright,
// which in practice means something pg_indexes produced that isn't a
// plain CREATE INDEX statement at all) has nothing to round-trip and is
// reported as UnsupportedError rather than emitting broken DDL.
func diffIndexes(old, new map[string]catalog.Index) (pre, post change.List, err error) {
	for _, key := range sortedMapKeys(new) {
		ni := new[key]
		if oi, ok := old[key]; ok {
			if indexEqual(oi, ni) {
				continue
			}
			if err := checkIndexSupported(ni); err != nil {
				return nil, nil, err
			}
			pre = append(pre, indexToDrop(oi), indexToCreate(ni))
			continue
		}
		if err := checkIndexSupported(ni); err != nil {
			return nil, nil, err
		}
		pre = append(pre, indexToCreate(ni))
	}
	for _, key := range sortedMapKeys(old) {
		oi := old[key]
		if _, ok := new[key]; ok || oi.NoDrop {
			continue
		}
		post = append(post, indexToDrop(oi))
	}
	return pre, post, nil
}

func checkIndexSupported(i catalog.Index) error {
	if i.Using == "" {
		return UnsupportedError{Object: q2(i.Schema, i.Name), Reason: "indexdef did not parse as a CREATE INDEX statement"}
	}
	return nil
}

func indexEqual(a, b catalog.Index) bool {
	return a.Unique == b.Unique && a.Using == b.Using && a.Where == b.Where &&
		strings.Join(a.Columns, ",") == strings.Join(b.Columns, ",")
}

func indexToCreate(i catalog.Index) *change.CreateIndex {
	return &change.CreateIndex{
		Unique: i.Unique,
		Name:   i.Name,
		Table:  i.Table,
		Expr:   strings.Join(i.Columns, ", "),
		Using:  i.Using,
		Where:  i.Where,
	}
}

func indexToDrop(i catalog.Index) *change.DropIndex {
	return &change.DropIndex{
		Unique: i.Unique,
		Name:   i.Name,
		Table:  i.Table,
		Expr:   strings.Join(i.Columns, ", "),
		Using:  i.Using,
		Where:  i.Where,
	}
}
