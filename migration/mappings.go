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

	"github.com/wordhord/wordhord/schema"
)

// EntityMappings maps entity type name -> old field name -> new field
// name, for the renames one revision introduces.
type EntityMappings map[string]map[string]string

// MappingTable is the persisted map from revision id to the field
// renames that revision introduced. A revision absent from the table
// introduced no renames. The backing file is a single JSON object, read
// fully and written back in full.
type MappingTable struct {
	path   string
	logger *slog.Logger
}

// NewMappingTable creates a table backed by the given file path. The
// file need not exist yet.
func NewMappingTable(path string, logger *slog.Logger) *MappingTable {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &MappingTable{path: path, logger: logger}
}

// All returns the full table. Missing or corrupt files read as empty.
func (t *MappingTable) All() map[string]EntityMappings {
	table := make(map[string]EntityMappings)
	readJSONTable(t.path, &table)
	return table
}

// Mappings returns the renames for one revision, or an empty map.
func (t *MappingTable) Mappings(revision string) EntityMappings {
	if m, ok := t.All()[revision]; ok {
		return m
	}
	return EntityMappings{}
}

// Record stores the renames for a revision, overwriting any prior
// entry. Empty mappings are not persisted: the table holds only
// revisions that actually rename something.
func (t *MappingTable) Record(revision string, mappings EntityMappings) error {
	if len(mappings) == 0 {
		return nil
	}
	table := t.All()
	table[revision] = mappings
	if err := writeJSONTable(t.path, table); err != nil {
		return err
	}
	t.logger.Info("recorded field mappings", "revision", revision, "entities", len(mappings))
	return nil
}

// DiscoverRenames extracts (entity, old, new) rename triples from a
// migration script's alteration statements, grouped by entity type in
// first-seen order. The result is what Record expects; a script with no
// renames yields an empty map.
func DiscoverRenames(script *schema.Script) EntityMappings {
	renames := EntityMappings{}
	for _, stmt := range script.Statements {
		if stmt.Op != schema.OpRenameField {
			continue
		}
		if renames[stmt.Entity] == nil {
			renames[stmt.Entity] = make(map[string]string)
		}
		renames[stmt.Entity][stmt.Field] = stmt.NewField
	}
	return renames
}
