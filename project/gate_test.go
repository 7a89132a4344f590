// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wordhord/wordhord/migration"
	"github.com/wordhord/wordhord/schema"
)

// fixedHistory is both a RevisionSource and a HeadSource over a static
// revision slice.
type fixedHistory struct {
	revs []schema.Revision
	head string
}

func (h *fixedHistory) Revisions() ([]schema.Revision, error) { return h.revs, nil }
func (h *fixedHistory) Head() (string, error)                 { return h.head, nil }

func threeRevisions() *fixedHistory {
	return &fixedHistory{
		revs: []schema.Revision{
			{ID: "r1", Parent: ""},
			{ID: "r2", Parent: "r1"},
			{ID: "r3", Parent: "r2"},
		},
		head: "r3",
	}
}

func testGate(t *testing.T, history *fixedHistory, mappings map[string]migration.EntityMappings, versions map[string]string) *Gate {
	t.Helper()
	dir := t.TempDir()

	mappingTable := migration.NewMappingTable(filepath.Join(dir, "mappings.json"), nil)
	for rev, m := range mappings {
		require.NoError(t, mappingTable.Record(rev, m))
	}
	versionTable := migration.NewVersionTable(filepath.Join(dir, "versions.json"), nil)
	for rev, v := range versions {
		require.NoError(t, versionTable.Record(rev, v))
	}

	return NewGate(
		migration.NewResolver(history, nil),
		migration.NewEngine(mappingTable),
		versionTable,
		history,
		nil,
	)
}

func TestGateRejectsMissingVersion(t *testing.T) {
	gate := testGate(t, threeRevisions(), nil, nil)

	_, err := gate.CheckAndTransform(map[string]any{"project": map[string]any{}})
	var missing *migration.MissingVersionError
	require.True(t, errors.As(err, &missing))
}

func TestGatePassesCurrentVersionUntouched(t *testing.T) {
	gate := testGate(t, threeRevisions(), nil, nil)

	doc := map[string]any{"migration_version": "r3", "project": map[string]any{"name": "x"}}
	out, err := gate.CheckAndTransform(doc)
	require.NoError(t, err)
	require.Equal(t, doc, out)
}

func TestGatePassesWhenNoSchemaExists(t *testing.T) {
	gate := testGate(t, &fixedHistory{head: ""}, nil, nil)

	doc := map[string]any{"migration_version": "r1"}
	out, err := gate.CheckAndTransform(doc)
	require.NoError(t, err)
	require.Equal(t, doc, out)
}

func TestGateTransformsOlderDocument(t *testing.T) {
	// A document exported at r1 crosses r2's rename on its way to r3.
	gate := testGate(t, threeRevisions(), map[string]migration.EntityMappings{
		"r2": {"token": {"lemma_old": "lemma"}},
	}, nil)

	doc := map[string]any{
		"migration_version": "r1",
		"project": map[string]any{
			"name": "Beowulf ll. 1-11",
			"sentences": []any{
				map[string]any{
					"text": "Hwæt!",
					"tokens": []any{
						map[string]any{"surface": "Hwæt", "lemma_old": "hwæt"},
					},
				},
			},
		},
	}

	out, err := gate.CheckAndTransform(doc)
	require.NoError(t, err)
	require.Equal(t, "r3", out["migration_version"])

	tok := out["project"].(map[string]any)["sentences"].([]any)[0].(map[string]any)["tokens"].([]any)[0].(map[string]any)
	require.Equal(t, "hwæt", tok["lemma"])
	require.NotContains(t, tok, "lemma_old")

	// The caller's document is untouched.
	origTok := doc["project"].(map[string]any)["sentences"].([]any)[0].(map[string]any)["tokens"].([]any)[0].(map[string]any)
	require.Contains(t, origTok, "lemma_old")
}

func TestGateRejectsNewerDocument(t *testing.T) {
	// r9 is unknown to this build's history: the chain cannot reach
	// head and the version table names the app version the user needs.
	gate := testGate(t, threeRevisions(), nil, map[string]string{"r9": "2.0"})

	doc := map[string]any{"migration_version": "r9"}
	_, err := gate.CheckAndTransform(doc)

	var incompatible *migration.IncompatibleVersionError
	require.True(t, errors.As(err, &incompatible))
	require.Equal(t, "r9", incompatible.Declared)
	require.Equal(t, "2.0", incompatible.Required)
}

func TestGateRejectsUnknownVersionWithoutTableEntry(t *testing.T) {
	gate := testGate(t, threeRevisions(), nil, nil)

	_, err := gate.CheckAndTransform(map[string]any{"migration_version": "zz"})
	var incompatible *migration.IncompatibleVersionError
	require.True(t, errors.As(err, &incompatible))
	require.Empty(t, incompatible.Required)
}
