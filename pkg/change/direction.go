// SPDX-License-Identifier: Apache-2.0

package change

import "context"

// Resolver gives a Direction access to live catalog state at the moment it
// is rendered into DDL. Column renames need to see the table's current
// column list to build a shim view; plain DDL directions ignore it.
type Resolver interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
}

// Direction is one half (up or down) of a Phase. It carries its own
// transaction discipline: transactional directions run inside a single
// database transaction bracketed by audit rows, idempotent directions run
// their DDL outside any transaction between two small audit transactions,
// and no-op directions do nothing but still occupy an audit slot.
type Direction interface {
	// Transactional reports whether this direction must be wrapped in a
	// single transaction together with its audit rows. false means the
	// direction is idempotent and must run outside any transaction.
	Transactional() bool

	// IsNoOp reports whether this direction performs no database work.
	IsNoOp() bool

	// Render produces the DDL to execute for this direction. It is called
	// immediately before execution (not when the phase list is built) so
	// that directions depending on live catalog state observe it at the
	// moment they actually run. shimSchema is the per-revision shim schema
	// name for the phase being executed.
	Render(ctx context.Context, resolver Resolver, shimSchema string) (string, error)
}

// TxDDL runs its SQL inside a transaction together with the phase's audit
// rows. All-or-nothing: either the DDL and the audit commit together, or
// nothing is observable.
type TxDDL struct {
	SQL string
}

func (TxDDL) Transactional() bool { return true }
func (TxDDL) IsNoOp() bool        { return false }

func (d TxDDL) Render(context.Context, Resolver, string) (string, error) {
	return d.SQL, nil
}

// IdempotentDDL runs its SQL outside any transaction, bracketed by two
// separate audit transactions. The SQL must be safe to re-execute (e.g.
// "IF NOT EXISTS"/"IF EXISTS") because a crash between the audit start and
// the DDL running leaves the audit row unfinished, and resuming re-runs it.
type IdempotentDDL struct {
	SQL string
}

func (IdempotentDDL) Transactional() bool { return false }
func (IdempotentDDL) IsNoOp() bool        { return false }

func (d IdempotentDDL) Render(context.Context, Resolver, string) (string, error) {
	return d.SQL, nil
}

// NoOp performs no database work. It still runs under the transactional
// discipline: an audit row is inserted and immediately finished.
type NoOp struct{}

func (NoOp) Transactional() bool { return true }
func (NoOp) IsNoOp() bool        { return true }

func (NoOp) Render(context.Context, Resolver, string) (string, error) {
	return "", nil
}
