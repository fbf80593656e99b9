// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"bytes"
	"fmt"

	"github.com/benkuhn/migrator/pkg/state"
)

// RevisionConflictError reports a hash mismatch between an on-disk revision
// and the one recorded in the database for the same number.
type RevisionConflictError struct {
	Revision int
}

func (e RevisionConflictError) Error() string {
	return fmt.Sprintf("revision %d: on-disk and database hashes disagree", e.Revision)
}

// CheckConsistency verifies that every on-disk revision already recorded in
// the database (i.e. numbered at or below the last audited revision) has
// matching migration/schema hashes. Revisions numbered past what the
// database has seen are exempt: they haven't been applied yet.
func CheckConsistency(revisions []Revision, inDB map[int]state.Revision) error {
	for _, rev := range revisions {
		db, ok := inDB[rev.Number]
		if !ok {
			continue
		}
		if !bytes.Equal(db.MigrationHash, rev.MigrationHash) || !bytes.Equal(db.SchemaHash, rev.SchemaHash) {
			return RevisionConflictError{Revision: rev.Number}
		}
	}
	return nil
}
