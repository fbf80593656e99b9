// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/benkuhn/migrator/cmd/flags"
	"github.com/benkuhn/migrator/pkg/db"
	"github.com/benkuhn/migrator/pkg/generator"
	"github.com/benkuhn/migrator/pkg/repo"
)

var revisionCmd = &cobra.Command{
	Use:   "revision <message>",
	Short: "Dump the live schema and generate a migration from the previous revision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		message := args[0]

		cfg, err := repo.LoadConfig(flags.ConfigPath())
		if err != nil {
			return fmt.Errorf("loading config %s: %w", flags.ConfigPath(), err)
		}

		admin, err := db.Open(ctx, flags.PostgresURL(), 0, "")
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", flags.PostgresURL(), err)
		}
		defer admin.Close()

		g := &generator.Generator{
			Config:       cfg,
			StatusSchema: flags.StatusSchema(),
			AdminDB:      admin,
			OpenThrowaway: func(ctx context.Context, dbName string) (db.DB, error) {
				return db.Open(ctx, replaceDBName(flags.PostgresURL(), dbName), 0, "")
			},
		}

		sp, _ := pterm.DefaultSpinner.WithText("Generating revision...").Start()
		result, err := g.Generate(ctx, message)
		if err != nil {
			sp.Fail(fmt.Sprintf("Failed to generate revision: %s", err))
			return err
		}

		sp.Success(fmt.Sprintf("Wrote revision %d to %s", result.Revision, result.MigrationPath))
		return nil
	},
}

// replaceDBName swaps the path component of a Postgres URL (the database
// name) for name, keeping host, credentials, and query parameters intact so
// a throwaway database is reachable with the same connection flags as the
// configured target.
func replaceDBName(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Path = "/" + strings.TrimPrefix(name, "/")
	return u.String()
}
