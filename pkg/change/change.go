// SPDX-License-Identifier: Apache-2.0

// Package change implements the change/phase model (Component A):
// a two-level decomposition of a revision into Changes, each of which
// expands into an ordered list of Phases, each with an up- and a
// down-Direction and a transaction discipline. This package has no
// dependency on the migration/revision model above it, or on a live
// database connection — it is pure data plus DDL rendering.
package change

// Change is a declarative modification within a revision. It expands to a
// fixed-length, ordered list of Phases.
type Change interface {
	// Kind is the wire-format tag name for this variant, e.g. "run_ddl".
	Kind() string

	// Phases returns this change's ordered phases. It performs no I/O;
	// directions that need live catalog state resolve it lazily when
	// Direction.Render is called at execution time.
	Phases() []Phase
}

var _ = []Change{
	(*RunDDL)(nil),
	(*CreateIndex)(nil),
	(*DropIndex)(nil),
	(*AddConstraint)(nil),
	(*DropConstraint)(nil),
	(*BeginRename)(nil),
	(*FinishRename)(nil),
}
