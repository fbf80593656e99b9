// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/benkuhn/migrator/pkg/ui"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run every phase from the last checkpoint to the latest on-disk revision",
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		sp, _ := pterm.DefaultSpinner.WithText("Running migrations...").Start()
		d := newDriver(s)
		if err := d.Upgrade(ctx, s.revisions); err != nil {
			sp.Fail(fmt.Sprintf("Upgrade failed: %s", err))
			return err
		}
		sp.Success("Database is up to date")
		return nil
	},
}
