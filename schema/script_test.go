// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	text := `-- revision: 9f3ab12c4d5e
-- parent: 7e241aa09b83
-- label: rename token lemma
alter entity token rename field lemma_old to lemma;
add field sentence.display_order;
drop field token.case_hint;
create entity note;
`
	script, err := ParseScript("0002_rename.mig", text)
	require.NoError(t, err)
	require.Equal(t, "9f3ab12c4d5e", script.ID)
	require.Equal(t, "7e241aa09b83", script.Parent)
	require.Empty(t, script.ExtraParents)
	require.Equal(t, "rename token lemma", script.Label)
	require.Len(t, script.Statements, 4)

	require.Equal(t, OpRenameField, script.Statements[0].Op)
	require.Equal(t, "token", script.Statements[0].Entity)
	require.Equal(t, "lemma_old", script.Statements[0].Field)
	require.Equal(t, "lemma", script.Statements[0].NewField)

	require.Equal(t, OpAddField, script.Statements[1].Op)
	require.Equal(t, "sentence", script.Statements[1].Entity)
	require.Equal(t, "display_order", script.Statements[1].Field)

	require.Equal(t, OpDropField, script.Statements[2].Op)
	require.Equal(t, OpCreateEntity, script.Statements[3].Op)
	require.Equal(t, "note", script.Statements[3].Entity)
}

func TestParseScriptRoot(t *testing.T) {
	text := `-- revision: aaaa11bbbb22
-- parent: none
-- label: initial schema
create entity project;
create entity sentence;
`
	script, err := ParseScript("0001_initial.mig", text)
	require.NoError(t, err)
	require.Equal(t, "aaaa11bbbb22", script.ID)
	require.Empty(t, script.Parent)
}

func TestParseScriptMergeParents(t *testing.T) {
	text := `-- revision: cccc33dddd44
-- parent: aaaa11bbbb22, eeee55ffff66
-- label: merge branches
`
	script, err := ParseScript("0005_merge.mig", text)
	require.NoError(t, err)
	require.Equal(t, "aaaa11bbbb22", script.Parent)
	require.Equal(t, []string{"eeee55ffff66"}, script.ExtraParents)
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing revision", "-- label: no revision\ncreate entity x;\n"},
		{"bad statement", "-- revision: aaaa11\ntruncate entity token;\n"},
		{"malformed rename", "-- revision: aaaa11\nalter entity token rename lemma_old lemma;\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript("bad.mig", tt.text)
			require.Error(t, err)
		})
	}
}
