// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/benkuhn/migrator/cmd/flags"
	"github.com/benkuhn/migrator/pkg/ui"
)

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the migrator status schema if it does not already exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		console := ui.NewConsole()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		setUp, err := s.state.IsSetUp(ctx)
		if err != nil {
			return err
		}
		if setUp {
			pterm.Info.Println("migrator schema already initialized")
			return nil
		}

		if !console.AskYesNo(fmt.Sprintf("Create migrator status schema %q?", flags.StatusSchema())) {
			console.Die("Can't do anything without an initialized status schema.")
		}

		sp, _ := pterm.DefaultSpinner.WithText("Creating status schema...").Start()
		if err := s.state.CreateSchema(ctx); err != nil {
			sp.Fail(fmt.Sprintf("Failed to initialize: %s", err))
			return err
		}
		sp.Success("Initialization complete")
		return nil
	},
}
