// SPDX-License-Identifier: Apache-2.0

package repo

import "github.com/benkuhn/migrator/pkg/change"

// PhaseTuple is one emission of the planner: a phase, its deterministic
// index, and the revision and change it belongs to.
type PhaseTuple struct {
	Index    change.PhaseIndex
	Revision *Revision
	Change   change.Change
	Phase    change.Phase
}

// PhaseSlice bounds a range of the global phase order. A nil Start/End
// means unbounded in that direction.
type PhaseSlice struct {
	Start          *change.PhaseIndex
	StartInclusive bool
	End            *change.PhaseIndex
	EndInclusive   bool
}

// revisionPhases enumerates one revision's phases in spec order: pre_deploy
// changes then post_deploy changes, each change's phases in array order.
func revisionPhases(rev *Revision) []PhaseTuple {
	var out []PhaseTuple
	emit := func(changes change.List, preDeploy bool) {
		for ci, c := range changes {
			for pi, ph := range c.Phases() {
				out = append(out, PhaseTuple{
					Index: change.PhaseIndex{
						Revision:      rev.Number,
						MigrationHash: rev.MigrationHash,
						SchemaHash:    rev.SchemaHash,
						PreDeploy:     preDeploy,
						Change:        ci,
						Phase:         pi,
					},
					Revision: rev,
					Change:   c,
					Phase:    ph,
				})
			}
		}
	}
	emit(rev.Migration.PreDeploy, true)
	emit(rev.Migration.PostDeploy, false)
	return out
}

// AllPhases enumerates every phase across every revision, in ascending
// revision-number order.
func AllPhases(revisions []Revision) []PhaseTuple {
	var out []PhaseTuple
	for i := range revisions {
		out = append(out, revisionPhases(&revisions[i])...)
	}
	return out
}

// FirstIndex and LastIndex identify the boundary phases of a revision, used
// by the driver to know when to create/drop the revision's shim schema.
func FirstIndex(rev *Revision) (change.PhaseIndex, bool) {
	phases := revisionPhases(rev)
	if len(phases) == 0 {
		return change.PhaseIndex{}, false
	}
	return phases[0].Index, true
}

func LastIndex(rev *Revision) (change.PhaseIndex, bool) {
	phases := revisionPhases(rev)
	if len(phases) == 0 {
		return change.PhaseIndex{}, false
	}
	return phases[len(phases)-1].Index, true
}

// GetPhases filters AllPhases' output to the bounds of slice, in ascending
// order. Reverse it for the downgrade loop.
func GetPhases(revisions []Revision, slice PhaseSlice) []PhaseTuple {
	all := AllPhases(revisions)
	out := make([]PhaseTuple, 0, len(all))
	for _, t := range all {
		if slice.Start != nil {
			cmp := t.Index.Compare(*slice.Start)
			if cmp < 0 || (cmp == 0 && !slice.StartInclusive) {
				continue
			}
		}
		if slice.End != nil {
			cmp := t.Index.Compare(*slice.End)
			if cmp > 0 || (cmp == 0 && !slice.EndInclusive) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Reversed returns a copy of tuples in reverse order, used by the downgrade loop.
func Reversed(tuples []PhaseTuple) []PhaseTuple {
	out := make([]PhaseTuple, len(tuples))
	for i, t := range tuples {
		out[len(tuples)-1-i] = t
	}
	return out
}
