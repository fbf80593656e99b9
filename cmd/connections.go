// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benkuhn/migrator/pkg/ui"
)

// connectionsCmd reports the connections table (§3 AppConnection): which
// revision each live application backend is currently pinned to. Not named
// in the CLI surface the spec describes, but the table itself is part of
// the data model and the original source treats it as operator-observable.
var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List application backends and the revision each is pinned to",
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

		conns, err := s.state.GetConnections(ctx)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(conns, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
