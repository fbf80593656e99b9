// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Revision is one on-disk <n>-migration.yml / <n>-schema.sql pair, read
// once at load time. MigrationHash and SchemaHash are SHA-256 over the raw
// file bytes, matching what the database stores for comparison.
type Revision struct {
	Number        int
	MigrationText []byte
	SchemaText    []byte
	MigrationHash []byte
	SchemaHash    []byte
	Migration     *Migration
}

// LoadRevisions reads every <n>-migration.yml/<n>-schema.sql pair from dir
// and returns them ordered by number. Numbers must form the contiguous
// range 1..N; a gap is reported as MissingRevisionError.
func LoadRevisions(dir string) ([]Revision, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	numbers := map[int]bool{}
	for _, e := range entries {
		n, ok := migrationNumber(e.Name())
		if ok {
			numbers[n] = true
		}
	}

	sorted := make([]int, 0, len(numbers))
	for n := range numbers {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)

	revisions := make([]Revision, 0, len(sorted))
	for i, n := range sorted {
		if n != i+1 {
			return nil, MissingRevisionError{GapAt: i + 1}
		}
		rev, err := loadOne(dir, n)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, *rev)
	}
	return revisions, nil
}

func loadOne(dir string, n int) (*Revision, error) {
	migrationText, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%d-migration.yml", n)))
	if err != nil {
		return nil, err
	}
	schemaText, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%d-schema.sql", n)))
	if err != nil {
		return nil, err
	}

	migration, err := ParseMigration(migrationText)
	if err != nil {
		return nil, fmt.Errorf("revision %d: %w", n, err)
	}

	return &Revision{
		Number:        n,
		MigrationText: migrationText,
		SchemaText:    schemaText,
		MigrationHash: hashBytes(migrationText),
		SchemaHash:    hashBytes(schemaText),
		Migration:     migration,
	}, nil
}

func hashBytes(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// migrationNumber extracts n from "<n>-migration.yml", the filename that
// identifies a revision's presence in the directory listing.
func migrationNumber(name string) (int, bool) {
	const suffix = "-migration.yml"
	if !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(name, suffix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MissingRevisionError reports a gap in the on-disk 1..N revision sequence.
type MissingRevisionError struct {
	GapAt int
}

func (e MissingRevisionError) Error() string {
	return fmt.Sprintf("revisions are not contiguous: missing revision %d", e.GapAt)
}
