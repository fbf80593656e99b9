// SPDX-License-Identifier: Apache-2.0

// Package repo reads the on-disk revision sequence (Component D: revision
// model and planner) and turns it into an ordered stream of phases the
// driver can run.
package repo

import (
	"gopkg.in/yaml.v3"

	"github.com/benkuhn/migrator/pkg/change"
)

// Migration is the parsed body of a revision's <n>-migration.yml.
type Migration struct {
	Message    string      `yaml:"message"`
	PreDeploy  change.List `yaml:"pre_deploy"`
	PostDeploy change.List `yaml:"post_deploy"`
}

// ParseMigration decodes a migration YAML document, rejecting it against
// the change-union JSON Schema before the typed unmarshal runs.
func ParseMigration(data []byte) (*Migration, error) {
	if err := validateMigrationYAML(data); err != nil {
		return nil, err
	}

	var m Migration
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Render serializes a Migration back to YAML, used by the generator.
func (m *Migration) Render() ([]byte, error) {
	return yaml.Marshal(m)
}
