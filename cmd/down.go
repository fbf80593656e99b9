// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/benkuhn/migrator/pkg/ui"
)

var downCmd = &cobra.Command{
	Use:       "down <n>",
	Short:     "Revert phases down to (and including the undo of) the revision after <n>",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"n"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("revision number must be an integer, got %q", args[0])
		}

		ctx := cmd.Context()
		console := ui.NewConsole()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		if err := requireInitialized(ctx, s, console); err != nil {
			return err
		}

		if !console.AskYesNo(fmt.Sprintf("Revert the database down to revision %d?", target)) {
			console.Die("Aborted.")
		}

		sp, _ := pterm.DefaultSpinner.WithText(fmt.Sprintf("Reverting to revision %d...", target)).Start()
		d := newDriver(s)
		if err := d.Downgrade(ctx, s.revisions, target); err != nil {
			sp.Fail(fmt.Sprintf("Downgrade failed: %s", err))
			return err
		}
		sp.Success(fmt.Sprintf("Database reverted to revision %d", target))
		return nil
	},
}
