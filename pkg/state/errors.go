// SPDX-License-Identifier: Apache-2.0

package state

import "fmt"

// RevisionConflict is raised by UpsertRevision when the database already
// holds a different (migration_hash, schema_hash) pair for this revision
// number — the on-disk revision and the applied one have diverged.
type RevisionConflict struct {
	Revision int
}

func (e RevisionConflict) Error() string {
	return fmt.Sprintf("revision %d conflicts with a different hash already recorded in the database", e.Revision)
}

// AlreadyTerminalError is raised by AuditPhaseEnd when the audit row it was
// asked to close already has a finished_at, guarding against double-commit.
type AlreadyTerminalError struct {
	AuditID int64
}

func (e AlreadyTerminalError) Error() string {
	return fmt.Sprintf("audit row %d is already finished", e.AuditID)
}

// NotFoundError is raised when a lookup (GetAudit, etc.) matches no row.
type NotFoundError struct {
	What string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.What)
}
