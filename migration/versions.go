// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import (
	"io"
	"log/slog"
)

// VersionTable is the persisted map from revision id to the minimum
// application version required to read data produced at that revision.
//
// Invariant: at most one revision maps to any given minimum version.
// Record enforces it by dropping prior entries that share the value, so
// the table always names the latest revision known to require each
// version. The backing file is a single JSON object, read fully and
// written back in full.
type VersionTable struct {
	path   string
	logger *slog.Logger
}

// NewVersionTable creates a table backed by the given file path. The
// file need not exist yet.
func NewVersionTable(path string, logger *slog.Logger) *VersionTable {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &VersionTable{path: path, logger: logger}
}

// All returns the full table. Missing or corrupt files read as empty.
func (t *VersionTable) All() map[string]string {
	table := make(map[string]string)
	readJSONTable(t.path, &table)
	return table
}

// MinVersion returns the minimum app version recorded for a revision.
func (t *VersionTable) MinVersion(revision string) (version string, ok bool) {
	version, ok = t.All()[revision]
	return version, ok
}

// RevisionsForVersion returns every revision whose minimum app version
// equals version. Under the dedup invariant this is at most one entry,
// but the read side tolerates tables written before the invariant held.
func (t *VersionTable) RevisionsForVersion(version string) []string {
	var revs []string
	for rev, v := range t.All() {
		if v == version {
			revs = append(revs, rev)
		}
	}
	return revs
}

// Record inserts revision -> minVersion, first removing any entries
// that already map to minVersion. Idempotent for a repeated
// (revision, version) pair.
func (t *VersionTable) Record(revision, minVersion string) error {
	table := t.All()

	var replaced []string
	for rev, v := range table {
		if v == minVersion && rev != revision {
			replaced = append(replaced, rev)
			delete(table, rev)
		}
	}
	table[revision] = minVersion

	if err := writeJSONTable(t.path, table); err != nil {
		return err
	}
	if len(replaced) > 0 {
		t.logger.Info("replaced version table entries",
			"version", minVersion, "replaced", replaced, "revision", revision)
	} else {
		t.logger.Info("recorded version table entry",
			"revision", revision, "version", minVersion)
	}
	return nil
}
