// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benkuhn/migrator/cmd/flags"
	"github.com/benkuhn/migrator/pkg/db"
	"github.com/benkuhn/migrator/pkg/driver"
	"github.com/benkuhn/migrator/pkg/executor"
	"github.com/benkuhn/migrator/pkg/repo"
	"github.com/benkuhn/migrator/pkg/state"
	"github.com/benkuhn/migrator/pkg/ui"
)

// Version is set by the release build via -ldflags.
var Version = "development"

func init() {
	viper.SetEnvPrefix("MIGRATOR")
	viper.AutomaticEnv()

	flags.PgConnectionFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "migrator",
	Short:        "Resumable expand/contract schema migrations for Postgres",
	SilenceUsage: true,
	Version:      Version,
}

// Execute runs the CLI, returning the error any subcommand's RunE returned.
func Execute() error {
	rootCmd.AddCommand(initdbCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(revisionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(connectionsCmd)

	return rootCmd.Execute()
}

// session bundles everything a subcommand needs: a live connection, the
// audit store built against it, and the on-disk revision list. close must
// be deferred by the caller.
type session struct {
	conn      *db.RDB
	state     *state.State
	revisions []repo.Revision
	config    *repo.Config
}

func (s *session) close() error {
	return s.conn.Close()
}

// newSession loads the repo config and on-disk revisions, and opens a
// connection configured per the shared connection flags. It does not
// require the migrator schema to already exist, since initdb needs a
// session before one does.
func newSession(ctx context.Context) (*session, error) {
	cfg, err := repo.LoadConfig(flags.ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", flags.ConfigPath(), err)
	}

	revisions, err := repo.LoadRevisions(cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("loading revisions from %s: %w", cfg.MigrationsDir, err)
	}

	conn, err := db.Open(ctx, flags.PostgresURL(), flags.LockTimeout(), flags.Role())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", flags.PostgresURL(), err)
	}

	st := state.New(conn, flags.StatusSchema())

	return &session{conn: conn, state: st, revisions: revisions, config: cfg}, nil
}

// newDriver builds a Driver against an already-open session, wiring a live
// CatalogResolver so rename phases can inspect the database's current
// columns rather than the nil resolver test harnesses use.
func newDriver(s *session) *driver.Driver {
	resolver := &db.CatalogResolver{Queryer: s.conn}
	ex := executor.New(s.conn, s.state, resolver)
	ex.Logger = executor.NewLogger()
	return driver.New(s.conn, s.state, ex)
}

// requireInitialized dies through console if the migrator schema has not
// been created yet; only initdb may run against an uninitialized database.
func requireInitialized(ctx context.Context, s *session, console ui.UI) error {
	setUp, err := s.state.IsSetUp(ctx)
	if err != nil {
		return err
	}
	if !setUp {
		console.Die("migrator schema is not initialized; run `migrator initdb` first")
	}
	return nil
}
