// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wordhord/wordhord/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleProject() *Project {
	return &Project{
		Name:      "Beowulf ll. 1-11",
		SourceRef: "Cotton Vitellius A.xv",
		Sentences: []Sentence{
			{
				Text:        "Hwæt! Wē Gār-Dena in geārdagum",
				Translation: "Listen! We of the Spear-Danes in days of yore",
				Tokens: []Token{
					{Surface: "Hwæt", Lemma: "hwæt", Gloss: "listen"},
					{
						Surface: "Gār-Dena",
						Lemma:   "gārdene",
						Gloss:   "Spear-Danes",
						Annotations: []Annotation{
							{Kind: "case", Value: "genitive"},
							{Kind: "number", Value: "plural"},
						},
					},
				},
				Notes: []Note{
					{Body: "Famous opening interjection.", Pinned: true},
				},
			},
			{
				Text:   "þēodcyninga þrym gefrūnon",
				Tokens: []Token{{Surface: "þrym", Lemma: "þrymm"}},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	svc := NewService(testStore(t), nil)

	p := sampleProject()
	require.NoError(t, svc.Save(p))
	require.NotEmpty(t, p.ID)

	loaded, err := svc.Load(p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, loaded.Name)
	require.Len(t, loaded.Sentences, 2)

	first := loaded.Sentences[0]
	require.Equal(t, "Hwæt! Wē Gār-Dena in geārdagum", first.Text)
	require.Len(t, first.Tokens, 2)
	require.Equal(t, "genitive", first.Tokens[1].Annotations[0].Value)
	require.Len(t, first.Notes, 1)
	require.True(t, first.Notes[0].Pinned)
}

func TestSavePreservesChildOrder(t *testing.T) {
	svc := NewService(testStore(t), nil)

	p := &Project{Name: "order", Sentences: []Sentence{
		{Text: "one", Tokens: []Token{{Surface: "a"}, {Surface: "b"}, {Surface: "c"}}},
	}}
	require.NoError(t, svc.Save(p))

	loaded, err := svc.Load(p.ID)
	require.NoError(t, err)
	surfaces := make([]string, 0, 3)
	for _, tok := range loaded.Sentences[0].Tokens {
		surfaces = append(surfaces, tok.Surface)
	}
	require.Equal(t, []string{"a", "b", "c"}, surfaces)
}

func TestResaveReplacesChildren(t *testing.T) {
	st := testStore(t)
	svc := NewService(st, nil)

	p := sampleProject()
	require.NoError(t, svc.Save(p))

	p.Sentences = p.Sentences[:1]
	p.Sentences[0].Tokens = p.Sentences[0].Tokens[:1]
	require.NoError(t, svc.Save(p))

	loaded, err := svc.Load(p.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Sentences, 1)
	require.Len(t, loaded.Sentences[0].Tokens, 1)

	tokens, err := st.ListIDs(EntityToken)
	require.NoError(t, err)
	require.Len(t, tokens, 1, "removed tokens must not linger")
}

func TestListSummaries(t *testing.T) {
	svc := NewService(testStore(t), nil)
	require.NoError(t, svc.Save(sampleProject()))
	require.NoError(t, svc.Save(&Project{Name: "empty"}))

	summaries, err := svc.List()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byName := make(map[string]Summary, 2)
	for _, s := range summaries {
		byName[s.Name] = s
	}
	require.Equal(t, 2, byName["Beowulf ll. 1-11"].Sentences)
	require.Zero(t, byName["empty"].Sentences)
}

func TestDeleteRemovesAllRecords(t *testing.T) {
	st := testStore(t)
	svc := NewService(st, nil)

	p := sampleProject()
	require.NoError(t, svc.Save(p))
	require.NoError(t, svc.Delete(p.ID))

	_, err := svc.Load(p.ID)
	require.True(t, errors.Is(err, ErrProjectNotFound))

	for _, entity := range []string{EntitySentence, EntityToken, EntityAnnotation, EntityNote} {
		ids, err := st.ListIDs(entity)
		require.NoError(t, err)
		require.Empty(t, ids, entity)
	}
}

func TestDeleteUnknownProject(t *testing.T) {
	svc := NewService(testStore(t), nil)
	err := svc.Delete("missing")
	require.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestNameExists(t *testing.T) {
	svc := NewService(testStore(t), nil)
	require.NoError(t, svc.Save(&Project{Name: "Wanderer"}))

	exists, err := svc.NameExists("Wanderer")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = svc.NameExists("Seafarer")
	require.NoError(t, err)
	require.False(t, exists)
}
