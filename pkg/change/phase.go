// SPDX-License-Identifier: Apache-2.0

package change

// PhaseIndex is the deterministic identity of a phase within the global
// plan. Revisions are totally ordered by number; within a revision,
// pre-deploy phases sort before post-deploy phases; within a deploy list,
// changes and phases sort in array order.
type PhaseIndex struct {
	Revision      int
	MigrationHash []byte
	SchemaHash    []byte
	PreDeploy     bool
	Change        int
	Phase         int
}

// Compare returns -1, 0 or 1 as idx sorts before, equal to, or after other,
// using the total order from spec §3: (revision asc, pre_deploy desc-as-bool
// [true before false], change asc, phase asc). Hashes are identity, not
// order, so they are not part of the comparison.
func (idx PhaseIndex) Compare(other PhaseIndex) int {
	if idx.Revision != other.Revision {
		if idx.Revision < other.Revision {
			return -1
		}
		return 1
	}
	if idx.PreDeploy != other.PreDeploy {
		if idx.PreDeploy {
			return -1
		}
		return 1
	}
	if idx.Change != other.Change {
		if idx.Change < other.Change {
			return -1
		}
		return 1
	}
	if idx.Phase != other.Phase {
		if idx.Phase < other.Phase {
			return -1
		}
		return 1
	}
	return 0
}

func (idx PhaseIndex) Less(other PhaseIndex) bool {
	return idx.Compare(other) < 0
}

// Phase is the executable unit: an up-direction and a down-direction.
type Phase struct {
	Up   Direction
	Down Direction
}

// Direction returns the down direction if isRevert is true, otherwise up.
func (p Phase) Direction(isRevert bool) Direction {
	if isRevert {
		return p.Down
	}
	return p.Up
}
