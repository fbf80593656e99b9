// SPDX-License-Identifier: Apache-2.0

// Package diff implements the diff engine (Component E): given two catalog
// snapshots, produce the pre-deploy and post-deploy change lists a revision
// needs to go from the old snapshot to the new one.
package diff

import (
	"fmt"

	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/change"
)

// implicit bigint sequence bounds; a MIN/MAXVALUE equal to these is the
// default pyrseas/pg_dump would have chosen, not an operator-intended
// bound, so diffing it produces spurious NO MINVALUE/NO MAXVALUE churn
// (spec §4.6's stated known limitation).
const (
	implicitBigintMin = -9223372036854775808
	implicitBigintMax = 9223372036854775807
)

// Diff computes the pre-deploy and post-deploy change lists that take a
// database from old's shape to new's. Both lists are ordered per spec
// §4.6: pre-deploy in forward dependency order, post-deploy in reverse.
//
// The "dependency order" used here is a fixed category ordering (schema,
// sequence, table, column, index, constraint, view, function) rather than a
// true object-reference topological sort — see DESIGN.md for why this
// simplification is in scope.
func Diff(old, new catalog.Snapshot) (preDeploy, postDeploy change.List, err error) {
	renamedSchemas := markRenames(old.Schemas, new.Schemas, func(s catalog.Schema) string { return s.PriorName })
	renamedSequences := markRenames(old.Sequences, new.Sequences, func(s catalog.Sequence) string { return s.PriorName })
	renamedTables := markRenames(old.Tables, new.Tables, func(t catalog.Table) string { return t.PriorName })
	renamedViews := markRenames(old.Views, new.Views, func(v catalog.View) string { return v.PriorName })

	var pre, post change.List

	pre = append(pre, diffSchemas(old.Schemas, new.Schemas, renamedSchemas)...)
	pre = append(pre, diffSequences(old.Sequences, new.Sequences, renamedSequences)...)

	tablePre, tablePost, renames, err := diffTables(old.Tables, new.Tables, renamedTables)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, renames...)
	pre = append(pre, tablePre...)

	idxPre, idxPost, err := diffIndexes(old.Indexes, new.Indexes)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, idxPre...)

	conPre, conPost := diffConstraints(old.Constraints, new.Constraints)
	pre = append(pre, conPre...)

	viewPre, viewPost := diffViews(old.Views, new.Views, renamedViews)
	pre = append(pre, viewPre...)

	funcPre, funcPost := diffFunctions(old.Functions, new.Functions)
	pre = append(pre, funcPre...)

	post = append(post, funcPost...)
	post = append(post, viewPost...)
	post = append(post, conPost...)
	post = append(post, idxPost...)
	post = append(post, tablePost...)

	tableDropPre, tableDropPost := diffTableExistence(old.Tables, new.Tables, renamedTables)
	pre = append(pre, tableDropPre...)
	post = append(post, tableDropPost...)

	seqDropPre, seqDropPost := diffSequenceExistence(old.Sequences, new.Sequences, renamedSequences)
	pre = append(pre, seqDropPre...)
	post = append(post, seqDropPost...)

	schemaDropPre, schemaDropPost := diffSchemaExistence(old.Schemas, new.Schemas, renamedSchemas)
	pre = append(pre, schemaDropPre...)
	post = append(post, schemaDropPost...)

	return elideEmptyRunDDL(pre), elideEmptyRunDDL(post), nil
}

// markRenames returns the set of old-side keys that a new-side object
// claims as its prior name, so the drop pass can skip them (spec §4.6:
// "mark the old object _nodrop").
func markRenames[K comparable, V any](oldObjs, newObjs map[K]V, priorName func(V) string) map[K]bool {
	nodrop := map[K]bool{}
	oldByName := map[string]K{}
	for k := range oldObjs {
		oldByName[fmt.Sprint(k)] = k
	}
	for _, v := range newObjs {
		if pn := priorName(v); pn != "" {
			if k, ok := oldByName[pn]; ok {
				nodrop[k] = true
			}
		}
	}
	return nodrop
}

func diffSchemas(old, new map[string]catalog.Schema, nodrop map[string]bool) change.List {
	var out change.List
	for name := range new {
		if _, ok := old[name]; !ok {
			out = append(out, &change.RunDDL{Up: fmt.Sprintf("CREATE SCHEMA %s", q(name)), Down: fmt.Sprintf("DROP SCHEMA %s", q(name))})
		}
	}
	sortByRender(out)
	return out
}

func diffSchemaExistence(old, new map[string]catalog.Schema, nodrop map[string]bool) (pre, post change.List) {
	for name := range old {
		if _, ok := new[name]; ok || nodrop[name] {
			continue
		}
		post = append(post, &change.RunDDL{Up: fmt.Sprintf("DROP SCHEMA %s", q(name)), Down: fmt.Sprintf("CREATE SCHEMA %s", q(name))})
	}
	sortByRender(post)
	return nil, post
}

func diffSequences(old, new map[string]catalog.Sequence, nodrop map[string]bool) change.List {
	var out change.List
	for key, ns := range new {
		os, existed := old[key]
		if !existed {
			out = append(out, &change.RunDDL{Up: createSequenceSQL(ns), Down: dropSequenceSQL(ns)})
			continue
		}
		out = append(out, alterSequenceChanges(os, ns)...)
	}
	sortByRender(out)
	return out
}

func diffSequenceExistence(old, new map[string]catalog.Sequence, nodrop map[string]bool) (pre, post change.List) {
	for key, os := range old {
		if _, ok := new[key]; ok || nodrop[key] {
			continue
		}
		post = append(post, &change.RunDDL{Up: dropSequenceSQL(os), Down: createSequenceSQL(os)})
	}
	sortByRender(post)
	return nil, post
}

func createSequenceSQL(s catalog.Sequence) string {
	return fmt.Sprintf("CREATE SEQUENCE %s AS %s INCREMENT BY %d", q2(s.Schema, s.Name), s.DataType, s.Increment)
}

func dropSequenceSQL(s catalog.Sequence) string {
	return fmt.Sprintf("DROP SEQUENCE %s", q2(s.Schema, s.Name))
}

func alterSequenceChanges(old, new catalog.Sequence) change.List {
	up := sequenceAlterStmts(old, new)
	if len(up) == 0 {
		return nil
	}
	down := sequenceAlterStmts(new, old)
	return change.List{&change.RunDDL{Up: joinStmts(up), Down: joinStmts(down)}}
}

// sequenceAlterStmts returns the ALTER SEQUENCE statements that move from's
// bounds to to's. Called with (old, new) for the up direction and (new,
// old) for the down direction, so the two are always exact mirrors.
func sequenceAlterStmts(from, to catalog.Sequence) []string {
	var stmts []string
	if from.Increment != to.Increment {
		stmts = append(stmts, fmt.Sprintf("ALTER SEQUENCE %s INCREMENT BY %d", q2(to.Schema, to.Name), to.Increment))
	}
	if !isImplicitBound(from.MinValue) && !isImplicitBound(to.MinValue) && from.MinValue != to.MinValue {
		stmts = append(stmts, fmt.Sprintf("ALTER SEQUENCE %s MINVALUE %d", q2(to.Schema, to.Name), to.MinValue))
	}
	if !isImplicitBound(from.MaxValue) && !isImplicitBound(to.MaxValue) && from.MaxValue != to.MaxValue {
		stmts = append(stmts, fmt.Sprintf("ALTER SEQUENCE %s MAXVALUE %d", q2(to.Schema, to.Name), to.MaxValue))
	}
	return stmts
}

func isImplicitBound(v int64) bool {
	return v == implicitBigintMin || v == implicitBigintMax
}

func joinStmts(stmts []string) string {
	out := stmts[0]
	for _, s := range stmts[1:] {
		out += "; " + s
	}
	return out
}
