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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wordhord/wordhord/pkg/validation"
	"github.com/wordhord/wordhord/store"
)

var (
	// ErrNoHead indicates the repository contains no revisions.
	ErrNoHead = errors.New("schema: repository has no revisions")

	// ErrMultipleHeads indicates diverged lineage: more than one
	// revision has no children. The repository must be merged before
	// upgrades can run.
	ErrMultipleHeads = errors.New("schema: repository has multiple heads")

	// ErrUnknownRevision indicates a revision id with no script.
	ErrUnknownRevision = errors.New("schema: unknown revision")

	// ErrOffLineage indicates the store's revision marker does not
	// appear in the head's parent lineage, so no incremental upgrade
	// path exists.
	ErrOffLineage = errors.New("schema: store revision is not an ancestor of head")
)

// Repository enumerates schema revisions and applies them to a store.
//
// Implementations own the migration scripts; consumers never create or
// mutate revisions except through Author.
type Repository interface {
	// Revisions returns every known revision in discovery order.
	Revisions() ([]Revision, error)

	// Head returns the newest revision id, or "" when no revisions
	// exist yet.
	Head() (string, error)

	// Script loads the parsed script for a revision id.
	Script(id string) (*Script, error)

	// Author creates a new revision on top of the current head from the
	// given alteration statements and returns its parsed script.
	Author(label string, statements []string) (*Script, error)

	// UpgradeToHead incrementally applies every script between the
	// store's revision marker and head, stamping the marker after each
	// hop. Idempotent: a store already at head is a no-op. Returns the
	// final revision id.
	UpgradeToHead(ctx context.Context, st *store.Store) (string, error)
}

// DirRepository is a Repository over a directory of .mig script files.
// Files sort by name; the NNNN_ filename prefix gives a stable
// discovery order.
type DirRepository struct {
	dir    string
	logger *slog.Logger
}

// NewDirRepository creates a repository rooted at dir, creating the
// directory if needed. A nil logger disables diagnostics.
func NewDirRepository(dir string, logger *slog.Logger) (*DirRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("schema: scripts directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("schema: create scripts directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DirRepository{dir: dir, logger: logger}, nil
}

// Dir returns the scripts directory path.
func (r *DirRepository) Dir() string {
	return r.dir
}

// scripts parses every .mig file in name order. Malformed files are
// skipped with a warning: one broken script must not take down
// enumeration for everyone else.
func (r *DirRepository) scripts() ([]*Script, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("schema: read scripts directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mig") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scripts := make([]*Script, 0, len(names))
	for _, name := range names {
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("schema: read script %s: %w", name, err)
		}
		script, err := ParseScript(path, string(data))
		if err != nil {
			r.logger.Warn("skipping malformed migration script", "path", path, "error", err)
			continue
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// Revisions returns every parseable revision in discovery order.
func (r *DirRepository) Revisions() ([]Revision, error) {
	scripts, err := r.scripts()
	if err != nil {
		return nil, err
	}
	revs := make([]Revision, len(scripts))
	for i, s := range scripts {
		revs[i] = s.Revision
	}
	return revs, nil
}

// Head returns the single revision that no other revision derives from.
// Returns "" with no error for an empty repository, and
// ErrMultipleHeads when lineage has diverged.
func (r *DirRepository) Head() (string, error) {
	revs, err := r.Revisions()
	if err != nil {
		return "", err
	}
	if len(revs) == 0 {
		return "", nil
	}

	hasChild := make(map[string]bool, len(revs))
	for _, rev := range revs {
		if rev.Parent != "" {
			hasChild[rev.Parent] = true
		}
		for _, p := range rev.ExtraParents {
			hasChild[p] = true
		}
	}

	var heads []string
	for _, rev := range revs {
		if !hasChild[rev.ID] {
			heads = append(heads, rev.ID)
		}
	}
	switch len(heads) {
	case 0:
		// Every revision has a child: the graph is cyclic.
		return "", fmt.Errorf("%w: revision graph is cyclic", ErrNoHead)
	case 1:
		return heads[0], nil
	default:
		sort.Strings(heads)
		return "", fmt.Errorf("%w: %s", ErrMultipleHeads, strings.Join(heads, ", "))
	}
}

// Script loads the parsed script for a revision id.
func (r *DirRepository) Script(id string) (*Script, error) {
	scripts, err := r.scripts()
	if err != nil {
		return nil, err
	}
	for _, s := range scripts {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownRevision, id)
}

var labelSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Author writes a new script on top of the current head. The revision
// id is 12 hex chars derived from a random UUID, matching the shape of
// hand-authored ids.
func (r *DirRepository) Author(label string, statements []string) (*Script, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("schema: migration label is required")
	}
	for _, raw := range statements {
		if _, err := parseStatement(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))); err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
	}

	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if err := validation.ValidateRevisionID(id); err != nil {
		return nil, fmt.Errorf("schema: generated revision id: %w", err)
	}

	scripts, err := r.scripts()
	if err != nil {
		return nil, err
	}

	parent := "none"
	if head != "" {
		parent = head
	}
	slug := strings.Trim(labelSlugPattern.ReplaceAllString(strings.ToLower(label), "_"), "_")
	name := fmt.Sprintf("%04d_%s.mig", len(scripts)+1, slug)

	var b strings.Builder
	fmt.Fprintf(&b, "-- revision: %s\n", id)
	fmt.Fprintf(&b, "-- parent: %s\n", parent)
	fmt.Fprintf(&b, "-- label: %s\n", label)
	for _, raw := range statements {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.HasSuffix(raw, ";") {
			raw += ";"
		}
		b.WriteString(raw + "\n")
	}

	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0640); err != nil {
		return nil, fmt.Errorf("schema: write script %s: %w", name, err)
	}

	r.logger.Info("authored migration", "revision", id, "parent", parent, "path", path)
	return ParseScript(path, b.String())
}
