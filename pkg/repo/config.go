// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the repo-level configuration read from <config>.yml. Zero
// values are filled in by LoadConfig to match spec defaults.
type Config struct {
	SchemaDumpCommand          string `yaml:"schema_dump_command"`
	MigrationsDir              string `yaml:"migrations_dir"`
	CrashOnIncompatibleVersion bool   `yaml:"crash_on_incompatible_version"`
	IncantationPath            string `yaml:"incantation_path"`
}

func defaultConfig() Config {
	return Config{
		MigrationsDir:              "migrations",
		CrashOnIncompatibleVersion: true,
		IncantationPath:            "migrations/incantation.sql",
	}
}

// LoadConfig reads and applies defaults to a RepoConfig from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
