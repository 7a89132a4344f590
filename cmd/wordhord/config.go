// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the wordhord.yaml schema.
type Config struct {
	// DataDir holds the Badger store. Supports ~ expansion.
	DataDir string `yaml:"data_dir"`

	// ScriptsDir holds the .mig migration scripts.
	ScriptsDir string `yaml:"scripts_dir"`

	Backups struct {
		// Dir holds store snapshots.
		Dir string `yaml:"dir"`

		// Max is the retention count; older snapshots are pruned.
		Max int `yaml:"max"`
	} `yaml:"backups"`

	Logging struct {
		// Level is debug, info, warn, or error.
		Level string `yaml:"level"`

		// Dir enables JSON file logging when set.
		Dir string `yaml:"dir"`

		// JSON switches stderr logging to JSON.
		JSON bool `yaml:"json"`
	} `yaml:"logging"`

	Migration struct {
		// SkipUntilVersion pins the store: revisions past this id are
		// not applied.
		SkipUntilVersion string `yaml:"skip_until_version"`

		// LastWorkingVersion is the newest app version that completed a
		// migration successfully. Maintained by the tool.
		LastWorkingVersion string `yaml:"last_working_version"`
	} `yaml:"migration"`
}

func defaultConfig() Config {
	var c Config
	c.DataDir = "~/.wordhord/data"
	c.ScriptsDir = "migrations"
	c.Backups.Dir = "~/.wordhord/backups"
	c.Backups.Max = 5
	c.Logging.Level = "info"
	return c
}

// loadConfig reads the YAML config at path. A missing file yields the
// defaults; a present but malformed file is an error.
func loadConfig(path string) (Config, error) {
	c := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// saveConfig writes the config back to path.
func saveConfig(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
