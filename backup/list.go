// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func unmarshalMetadata(data []byte, m *Metadata) error {
	return json.Unmarshal(data, m)
}

// List returns every snapshot in the backup directory, newest first.
// Snapshots with a missing or unreadable sidecar are still listed, with
// zero-valued metadata; diagnostic tooling should be able to see them.
func (g *Guard) List() ([]*Record, error) {
	entries, err := os.ReadDir(g.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read directory: %w", err)
	}

	var records []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), backupSuffix) {
			continue
		}
		records = append(records, g.readRecord(filepath.Join(g.config.Dir, e.Name())))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Path > records[j].Path
	})
	return records, nil
}

// Open returns the Record for a snapshot path, loading its sidecar if
// present.
func (g *Guard) Open(path string) (*Record, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}
	return g.readRecord(path), nil
}

// readRecord builds a Record, tolerating sidecar problems.
func (g *Guard) readRecord(path string) *Record {
	rec := &Record{Path: path}
	metadataPath := strings.TrimSuffix(path, backupSuffix) + metadataSuffix

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		g.logger.Warn("backup sidecar unreadable", "path", metadataPath, "error", err)
		return rec
	}
	var m Metadata
	if err := unmarshalMetadata(data, &m); err != nil {
		g.logger.Warn("backup sidecar corrupt", "path", metadataPath, "error", err)
		return rec
	}
	rec.MetadataPath = metadataPath
	rec.Metadata = m
	return rec
}

// prune removes snapshots (and their sidecars) beyond MaxBackups,
// oldest first.
func (g *Guard) prune() error {
	records, err := g.List()
	if err != nil {
		return err
	}
	if len(records) <= g.config.MaxBackups {
		return nil
	}
	for _, rec := range records[g.config.MaxBackups:] {
		if err := os.Remove(rec.Path); err != nil {
			return fmt.Errorf("backup: prune %s: %w", rec.Path, err)
		}
		if rec.MetadataPath != "" {
			if err := os.Remove(rec.MetadataPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("backup: prune sidecar %s: %w", rec.MetadataPath, err)
			}
		}
		g.logger.Info("pruned old backup", "path", rec.Path)
	}
	return nil
}
