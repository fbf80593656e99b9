// SPDX-License-Identifier: Apache-2.0

// Package generator implements the revision generator (Component G): it
// dumps the target database's current schema, diffs it against the
// previous revision's stored schema inside two throwaway databases, and
// writes the resulting migration body plus connection incantation to disk.
package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/benkuhn/migrator/pkg/catalog"
	"github.com/benkuhn/migrator/pkg/db"
	"github.com/benkuhn/migrator/pkg/diff"
	"github.com/benkuhn/migrator/pkg/incantation"
	"github.com/benkuhn/migrator/pkg/repo"
)

// Runner executes the configured schema-dump command, streaming its
// stdout to out. The default, used when Runner is nil, shells out for
// real; tests substitute
// a fake that writes canned SQL instead.
type Runner interface {
	Run(ctx context.Context, name string, args []string, out io.Writer) error
}

// Generator holds everything Generate needs beyond the message argument:
// the repo config (schema-dump command, paths), a control connection that
// can CREATE/DROP DATABASE, and a way to open a connection to whatever
// throwaway database it just created.
type Generator struct {
	Config       *repo.Config
	StatusSchema string

	// AdminDB runs CREATE DATABASE / DROP DATABASE for the throwaway
	// databases this package creates to diff against.
	AdminDB db.Queryer
	// OpenThrowaway opens a connection to a just-created throwaway
	// database, given its name. It has no default: when nil, opening a
	// throwaway database fails with an error.
	OpenThrowaway func(ctx context.Context, dbName string) (db.DB, error)

	Runner Runner

	// Schemas restricts catalog introspection of the throwaway databases,
	// default []string{"public"} when left nil.
	Schemas []string
}

// Result is what Generate produced, returned so a caller (the CLI) can
// report it without re-reading the files back off disk.
type Result struct {
	Revision        int
	MigrationPath   string
	SchemaPath      string
	IncantationPath string
}

// Generate implements spec §4.7's generate(message) procedure.
func (g *Generator) Generate(ctx context.Context, message string) (*Result, error) {
	dir := g.Config.MigrationsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating migrations dir: %w", err)
	}

	n, err := nextRevisionNumber(dir)
	if err != nil {
		return nil, err
	}

	schemaPath := filepath.Join(dir, fmt.Sprintf("%d-schema.sql", n))
	if err := g.dumpSchema(ctx, schemaPath); err != nil {
		return nil, err
	}
	newSchemaSQL, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, err
	}

	var oldSchemaSQL []byte
	if n > 1 {
		oldSchemaSQL, err = os.ReadFile(filepath.Join(dir, fmt.Sprintf("%d-schema.sql", n-1)))
		if err != nil {
			return nil, err
		}
	}

	oldSnap, newSnap, err := g.diffSnapshots(ctx, oldSchemaSQL, newSchemaSQL)
	if err != nil {
		return nil, err
	}

	pre, post, err := diff.Diff(oldSnap, newSnap)
	if err != nil {
		return nil, err
	}

	migration := &repo.Migration{Message: message, PreDeploy: pre, PostDeploy: post}
	rendered, err := migration.Render()
	if err != nil {
		return nil, err
	}
	migrationPath := filepath.Join(dir, fmt.Sprintf("%d-migration.yml", n))
	if err := os.WriteFile(migrationPath, rendered, 0o644); err != nil {
		return nil, err
	}

	schemaHash := sha256.Sum256(newSchemaSQL)
	if err := incantation.Write(g.Config.IncantationPath, g.StatusSchema, n, schemaHash[:]); err != nil {
		return nil, err
	}

	return &Result{
		Revision:        n,
		MigrationPath:   migrationPath,
		SchemaPath:      schemaPath,
		IncantationPath: g.Config.IncantationPath,
	}, nil
}

func (g *Generator) dumpSchema(ctx context.Context, path string) error {
	args, err := shlex.Split(g.Config.SchemaDumpCommand)
	if err != nil || len(args) == 0 {
		return fmt.Errorf("parsing schema_dump_command %q: %w", g.Config.SchemaDumpCommand, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return g.runner().Run(ctx, args[0], args[1:], f)
}

func (g *Generator) runner() Runner {
	if g.Runner != nil {
		return g.Runner
	}
	return execRunner{}
}

// diffSnapshots loads oldSQL and newSQL into two throwaway databases and
// reads back a catalog.Snapshot from each.
func (g *Generator) diffSnapshots(ctx context.Context, oldSQL, newSQL []byte) (old, new catalog.Snapshot, err error) {
	old, err = g.snapshotOf(ctx, oldSQL)
	if err != nil {
		return catalog.Snapshot{}, catalog.Snapshot{}, fmt.Errorf("loading previous schema: %w", err)
	}
	new, err = g.snapshotOf(ctx, newSQL)
	if err != nil {
		return catalog.Snapshot{}, catalog.Snapshot{}, fmt.Errorf("loading new schema: %w", err)
	}
	return old, new, nil
}

func (g *Generator) snapshotOf(ctx context.Context, schemaSQL []byte) (catalog.Snapshot, error) {
	name := throwawayName()
	if _, err := g.AdminDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("creating throwaway database: %w", err)
	}
	defer g.AdminDB.ExecContext(ctx, "DROP DATABASE "+pq.QuoteIdentifier(name))

	conn, err := g.openThrowaway()(ctx, name)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("connecting to throwaway database: %w", err)
	}
	defer conn.Close()

	if len(bytes.TrimSpace(schemaSQL)) > 0 {
		if _, err := conn.ExecContext(ctx, string(schemaSQL)); err != nil {
			return catalog.Snapshot{}, fmt.Errorf("loading schema: %w", err)
		}
	}

	reader := &catalog.Reader{Queryer: conn}
	return reader.Read(ctx, g.schemas())
}

func (g *Generator) schemas() []string {
	if g.Schemas != nil {
		return g.Schemas
	}
	return []string{"public"}
}

func (g *Generator) openThrowaway() func(context.Context, string) (db.DB, error) {
	if g.OpenThrowaway != nil {
		return g.OpenThrowaway
	}
	return func(context.Context, string) (db.DB, error) {
		return nil, fmt.Errorf("generator: OpenThrowaway is not configured")
	}
}

func throwawayName() string {
	return "migrator_tmp_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

var revisionFilePattern = regexp.MustCompile(`^(\d+)-migration\.yml$`)

// nextRevisionNumber scans dir for "<n>-migration.yml" files and returns
// one past the highest n found (1 if none exist).
func nextRevisionNumber(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	max := 0
	for _, e := range entries {
		m := revisionFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, out io.Writer) error {
	return runCommand(ctx, name, args, out)
}
