// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// readJSONTable loads a keyed JSON table into v. Missing or corrupt
// files are not errors: the metadata tables are advisory caches and a
// broken cache must never block startup, so reads degrade to an empty
// table (the caller passes v pre-initialized to empty).
func readJSONTable(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, v)
}

// writeJSONTable writes a keyed JSON table in full, atomically: temp
// file in the same directory, fsync, rename.
func writeJSONTable(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("migration: marshal table %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("migration: create table directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("migration: create temp table file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("migration: write table %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("migration: sync table %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("migration: close table %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("migration: replace table %s: %w", path, err)
	}
	return nil
}
