// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package project holds the annotation domain model and its store
// binding: projects of Old English sentences, their tokens and
// annotations, plus export and import of the interchange format.
package project

import "time"

// Project is the top-level unit of work: a named text with its
// sentences.
type Project struct {
	ID        string     `json:"id"`
	Name      string     `json:"name" validate:"required,max=200"`
	SourceRef string     `json:"source_ref,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitzero"`
	UpdatedAt time.Time  `json:"updated_at,omitzero"`
	Sentences []Sentence `json:"sentences" validate:"dive"`
}

// Sentence is one line of source text with its token breakdown.
type Sentence struct {
	ID          string  `json:"id"`
	Text        string  `json:"text" validate:"required"`
	Translation string  `json:"translation,omitempty"`
	Tokens      []Token `json:"tokens" validate:"dive"`
	Notes       []Note  `json:"notes,omitempty" validate:"dive"`
}

// Token is a single word or punctuation unit of a sentence.
type Token struct {
	ID          string       `json:"id"`
	Surface     string       `json:"surface" validate:"required"`
	Lemma       string       `json:"lemma,omitempty"`
	Gloss       string       `json:"gloss,omitempty"`
	CaseHint    string       `json:"case_hint,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty" validate:"dive"`
}

// Annotation is a keyed analysis attached to a token, such as a
// morphological tag or a gloss variant.
type Annotation struct {
	ID    string `json:"id"`
	Kind  string `json:"kind" validate:"required,max=64"`
	Value string `json:"value"`
}

// Note is free-form commentary attached to a sentence.
type Note struct {
	ID     string `json:"id"`
	Body   string `json:"body" validate:"required"`
	Pinned bool   `json:"pinned,omitempty"`
}

// Summary is the listing view of a project: identity and counts, no
// content.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sentences int       `json:"sentences"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}
