// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"github.com/pterm/pterm"

	"github.com/benkuhn/migrator/pkg/change"
)

// Logger reports phase-level progress, the same role
// xataio/pgroll/pkg/migrations.Logger plays for that project's operations,
// narrowed to what a single phase attempt can say about itself.
type Logger interface {
	LogPhaseStart(idx change.PhaseIndex, isRevert bool)
	LogPhaseComplete(idx change.PhaseIndex, isRevert bool)
}

type ptermLogger struct {
	logger pterm.Logger
}

// NewLogger returns a Logger that writes structured lines via pterm's
// default logger, the CLI's ambient choice for anything that isn't a
// spinner/confirmation.
func NewLogger() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

func (l *ptermLogger) LogPhaseStart(idx change.PhaseIndex, isRevert bool) {
	l.logger.Info("starting phase", l.logger.Args(
		"revision", idx.Revision, "change", idx.Change, "phase", idx.Phase,
		"pre_deploy", idx.PreDeploy, "revert", isRevert,
	))
}

func (l *ptermLogger) LogPhaseComplete(idx change.PhaseIndex, isRevert bool) {
	l.logger.Info("completed phase", l.logger.Args(
		"revision", idx.Revision, "change", idx.Change, "phase", idx.Phase,
		"pre_deploy", idx.PreDeploy, "revert", isRevert,
	))
}

type noopLogger struct{}

// NewNoopLogger is the Executor's default, matching the teacher's own
// NewNoopLogger escape hatch for callers (tests, library embedders) that
// don't want CLI-flavored output.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) LogPhaseStart(change.PhaseIndex, bool)    {}
func (noopLogger) LogPhaseComplete(change.PhaseIndex, bool) {}
