// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wordhord/wordhord/store"
)

// writeScript drops a raw script file into the repository directory.
func writeScript(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0640))
}

func testRepo(t *testing.T) *DirRepository {
	t.Helper()
	repo, err := NewDirRepository(t.TempDir(), nil)
	require.NoError(t, err)
	return repo
}

// linearHistory writes r1 -> r2 -> r3 where r2 renames token.lemma_old.
func linearHistory(t *testing.T, repo *DirRepository) {
	writeScript(t, repo.Dir(), "0001_initial.mig", `-- revision: aaaaaa111111
-- parent: none
-- label: initial schema
create entity project;
create entity token;
`)
	writeScript(t, repo.Dir(), "0002_rename_lemma.mig", `-- revision: bbbbbb222222
-- parent: aaaaaa111111
-- label: rename token lemma
alter entity token rename field lemma_old to lemma;
`)
	writeScript(t, repo.Dir(), "0003_add_notes.mig", `-- revision: cccccc333333
-- parent: bbbbbb222222
-- label: add notes
create entity note;
add field note.pinned;
`)
}

func TestHeadEmptyRepository(t *testing.T) {
	repo := testRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)
	require.Empty(t, head)
}

func TestHeadLinear(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)

	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, "cccccc333333", head)
}

func TestHeadDiverged(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)
	writeScript(t, repo.Dir(), "0004_branch.mig", `-- revision: dddddd444444
-- parent: bbbbbb222222
-- label: divergent branch
add field token.case_hint;
`)

	_, err := repo.Head()
	require.True(t, errors.Is(err, ErrMultipleHeads))
}

func TestRevisionsSkipsMalformedScripts(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)
	writeScript(t, repo.Dir(), "0009_broken.mig", "no directives here\n")

	revs, err := repo.Revisions()
	require.NoError(t, err)
	require.Len(t, revs, 3)
}

func TestAuthorChainsOntoHead(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)

	script, err := repo.Author("rename gloss", []string{
		"alter entity token rename field gloss_old to gloss",
	})
	require.NoError(t, err)
	require.Equal(t, "cccccc333333", script.Parent)
	require.Len(t, script.ID, 12)
	require.Len(t, script.Statements, 1)

	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, script.ID, head)
}

func TestAuthorRejectsBadStatements(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.Author("bad", []string{"drop table token"})
	require.Error(t, err)
}

func TestAuthorFirstRevisionIsRoot(t *testing.T) {
	repo := testRepo(t)
	script, err := repo.Author("initial", []string{"create entity project"})
	require.NoError(t, err)
	require.Empty(t, script.Parent)
}

func TestUpgradeToHead(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)

	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	defer st.Close()

	// Store sits at r1 with a record still carrying the old field name.
	require.NoError(t, st.SetRevision("aaaaaa111111"))
	require.NoError(t, st.PutRecord("token", "t1", map[string]any{"surface": "hwæt", "lemma_old": "hwæt"}))

	head, err := repo.UpgradeToHead(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, "cccccc333333", head)

	rev, err := st.Revision()
	require.NoError(t, err)
	require.Equal(t, "cccccc333333", rev)

	doc, err := st.GetRecord("token", "t1")
	require.NoError(t, err)
	require.Equal(t, "hwæt", doc["lemma"])
	require.NotContains(t, doc, "lemma_old")
}

func TestUpgradeToHeadIdempotent(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)

	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.SetRevision("cccccc333333"))

	head, err := repo.UpgradeToHead(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, "cccccc333333", head)
}

func TestUpgradeToHeadOffLineage(t *testing.T) {
	repo := testRepo(t)
	linearHistory(t, repo)

	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.SetRevision("ffffff999999"))

	_, err = repo.UpgradeToHead(context.Background(), st)
	require.True(t, errors.Is(err, ErrOffLineage))
}
