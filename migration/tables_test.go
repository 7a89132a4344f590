// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wordhord/wordhord/schema"
)

func tablePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestVersionTableMissingFileReadsEmpty(t *testing.T) {
	table := NewVersionTable(tablePath(t, "versions.json"), nil)
	require.Empty(t, table.All())

	_, ok := table.MinVersion("r1")
	require.False(t, ok)
}

func TestVersionTableCorruptFileReadsEmpty(t *testing.T) {
	path := tablePath(t, "versions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0640))

	table := NewVersionTable(path, nil)
	require.Empty(t, table.All())
}

func TestVersionTableRecordDedupsByVersion(t *testing.T) {
	table := NewVersionTable(tablePath(t, "versions.json"), nil)

	require.NoError(t, table.Record("r1", "1.0"))
	require.NoError(t, table.Record("r2", "1.0"))

	// r2 supersedes r1 for 1.0; only the latest revision survives.
	require.Equal(t, map[string]string{"r2": "1.0"}, table.All())
	require.Equal(t, []string{"r2"}, table.RevisionsForVersion("1.0"))
}

func TestVersionTableRecordIdempotent(t *testing.T) {
	table := NewVersionTable(tablePath(t, "versions.json"), nil)

	require.NoError(t, table.Record("r1", "1.0"))
	require.NoError(t, table.Record("r1", "1.0"))
	require.Equal(t, map[string]string{"r1": "1.0"}, table.All())
}

func TestVersionTableDistinctVersionsCoexist(t *testing.T) {
	table := NewVersionTable(tablePath(t, "versions.json"), nil)

	require.NoError(t, table.Record("r1", "1.0"))
	require.NoError(t, table.Record("r3", "1.1"))

	v, ok := table.MinVersion("r3")
	require.True(t, ok)
	require.Equal(t, "1.1", v)
	require.Len(t, table.All(), 2)
}

func TestMappingTableRoundTrip(t *testing.T) {
	table := NewMappingTable(tablePath(t, "mappings.json"), nil)

	mappings := EntityMappings{
		"token": {"lemma_old": "lemma"},
		"note":  {"body_old": "body"},
	}
	require.NoError(t, table.Record("r2", mappings))
	require.Equal(t, mappings, table.Mappings("r2"))
	require.Empty(t, table.Mappings("r3"))
}

func TestMappingTableEmptyMappingsNotPersisted(t *testing.T) {
	path := tablePath(t, "mappings.json")
	table := NewMappingTable(path, nil)

	require.NoError(t, table.Record("r2", EntityMappings{}))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestDiscoverRenames(t *testing.T) {
	script, err := schema.ParseScript("0002_rename.mig", `-- revision: bbbbbb222222
-- parent: aaaaaa111111
-- label: rename fields
alter entity token rename field lemma_old to lemma;
alter entity token rename field gloss_old to gloss;
alter entity note rename field body_old to body;
add field token.case_hint;
`)
	require.NoError(t, err)

	renames := DiscoverRenames(script)
	require.Equal(t, EntityMappings{
		"token": {"lemma_old": "lemma", "gloss_old": "gloss"},
		"note":  {"body_old": "body"},
	}, renames)
}

func TestDiscoverRenamesNone(t *testing.T) {
	script, err := schema.ParseScript("0001_initial.mig", `-- revision: aaaaaa111111
-- parent: none
-- label: initial
create entity token;
`)
	require.NoError(t, err)
	require.Empty(t, DiscoverRenames(script))
}
