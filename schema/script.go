// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package schema is the migration script repository: it owns the
// directory of schema migration scripts, the revision lineage they
// declare, and the execution of their alteration statements against a
// project store.
//
// A migration script is a text file named NNNN_label.mig:
//
//	-- revision: 9f3ab12c4d5e
//	-- parent: 7e241aa09b83
//	-- label: rename token lemma
//	alter entity token rename field lemma_old to lemma;
//	add field sentence.display_order;
//
// The header declares the revision's identity and lineage; the body is a
// list of alteration statements applied in order during an upgrade.
// Revisions are immutable once created: consumers only ever read them.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Revision is one schema-evolution step as declared by a script header.
type Revision struct {
	// ID is the opaque revision identifier (lowercase hex).
	ID string

	// Parent is the primary parent revision id, or "" for the root
	// revision.
	Parent string

	// ExtraParents holds additional parents of a merge revision. Chain
	// resolution only follows Parent; merges are surfaced to callers as
	// an explicit ambiguity rather than silently collapsed.
	ExtraParents []string

	// Label is the human-readable migration name.
	Label string
}

// StatementOp enumerates the alteration statement kinds.
type StatementOp int

const (
	// OpRenameField renames a field on every record of an entity.
	OpRenameField StatementOp = iota

	// OpAddField adds a field (initialized to null) to an entity.
	OpAddField

	// OpDropField removes a field from every record of an entity.
	OpDropField

	// OpCreateEntity declares a new entity type.
	OpCreateEntity
)

// String returns the statement keyword for diagnostics.
func (op StatementOp) String() string {
	switch op {
	case OpRenameField:
		return "rename-field"
	case OpAddField:
		return "add-field"
	case OpDropField:
		return "drop-field"
	case OpCreateEntity:
		return "create-entity"
	default:
		return "unknown"
	}
}

// Statement is one parsed alteration statement.
type Statement struct {
	// Raw is the statement text as written in the script.
	Raw string

	// Op is the statement kind.
	Op StatementOp

	// Entity is the entity type the statement targets.
	Entity string

	// Field is the affected field (old name for renames).
	Field string

	// NewField is the new field name for renames.
	NewField string
}

// Script is a parsed migration script.
type Script struct {
	Revision

	// Path is the script file location on disk.
	Path string

	// Statements are the parsed alteration statements, in file order.
	Statements []Statement

	// Text is the raw script body, kept for rename discovery by the
	// field mapping store.
	Text string
}

// Header directive and statement grammars. The statement grammar is
// deliberately rigid: anything unrecognized fails the parse so a typo
// cannot silently skip a schema change.
var (
	revisionDirective = regexp.MustCompile(`(?m)^--\s*revision:\s*([0-9a-f]+)\s*$`)
	parentDirective   = regexp.MustCompile(`(?m)^--\s*parent:\s*([0-9a-f]+(?:\s*,\s*[0-9a-f]+)*|none)\s*$`)
	labelDirective    = regexp.MustCompile(`(?m)^--\s*label:\s*(.+?)\s*$`)

	renameFieldStmt  = regexp.MustCompile(`^alter\s+entity\s+(\w+)\s+rename\s+field\s+(\w+)\s+to\s+(\w+)$`)
	addFieldStmt     = regexp.MustCompile(`^add\s+field\s+(\w+)\.(\w+)$`)
	dropFieldStmt    = regexp.MustCompile(`^drop\s+field\s+(\w+)\.(\w+)$`)
	createEntityStmt = regexp.MustCompile(`^create\s+entity\s+(\w+)$`)
)

// ParseScript parses a migration script body. The path is recorded for
// diagnostics only.
func ParseScript(path, text string) (*Script, error) {
	script := &Script{Path: path, Text: text}

	m := revisionDirective.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("schema: %s: missing revision directive", path)
	}
	script.ID = m[1]

	if m := parentDirective.FindStringSubmatch(text); m != nil && m[1] != "none" {
		parents := strings.Split(m[1], ",")
		script.Parent = strings.TrimSpace(parents[0])
		for _, p := range parents[1:] {
			script.ExtraParents = append(script.ExtraParents, strings.TrimSpace(p))
		}
	}

	if m := labelDirective.FindStringSubmatch(text); m != nil {
		script.Label = m[1]
	}

	stmts, err := parseStatements(text)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", path, err)
	}
	script.Statements = stmts
	return script, nil
}

// parseStatements parses the non-comment lines of a script body.
// Statements are separated by semicolons or newlines.
func parseStatements(text string) ([]Statement, error) {
	var stmts []Statement
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		for _, raw := range strings.Split(line, ";") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			stmt, err := parseStatement(raw)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func parseStatement(raw string) (Statement, error) {
	lower := strings.ToLower(raw)
	if m := renameFieldStmt.FindStringSubmatch(lower); m != nil {
		return Statement{Raw: raw, Op: OpRenameField, Entity: m[1], Field: m[2], NewField: m[3]}, nil
	}
	if m := addFieldStmt.FindStringSubmatch(lower); m != nil {
		return Statement{Raw: raw, Op: OpAddField, Entity: m[1], Field: m[2]}, nil
	}
	if m := dropFieldStmt.FindStringSubmatch(lower); m != nil {
		return Statement{Raw: raw, Op: OpDropField, Entity: m[1], Field: m[2]}, nil
	}
	if m := createEntityStmt.FindStringSubmatch(lower); m != nil {
		return Statement{Raw: raw, Op: OpCreateEntity, Entity: m[1]}, nil
	}
	return Statement{}, fmt.Errorf("unrecognized statement: %q", raw)
}
