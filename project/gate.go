// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/wordhord/wordhord/migration"
)

// HeadSource yields the code's current schema revision.
type HeadSource interface {
	Head() (string, error)
}

// Gate is the import compatibility check. Every envelope passes through
// it exactly once, before any content is decoded into the typed model:
// the declared migration version either matches the current schema, or
// a transformation chain is resolved and applied, or the import is
// rejected with the version the user would need.
type Gate struct {
	resolver *migration.Resolver
	engine   *migration.Engine
	versions *migration.VersionTable
	repo     HeadSource
	logger   *slog.Logger
}

// NewGate wires a gate from the chain resolver, the mapping engine, the
// version metadata table, and the schema head source.
func NewGate(resolver *migration.Resolver, engine *migration.Engine, versions *migration.VersionTable, repo HeadSource, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gate{resolver: resolver, engine: engine, versions: versions, repo: repo, logger: logger}
}

// CheckAndTransform inspects a raw envelope document and returns it in
// the current schema's field layout.
//
// A document with no declared migration version is rejected outright:
// there is no safe way to guess which schema its fields belong to. A
// document already at head passes through untouched. Otherwise a
// transformation chain is resolved; a chain that cannot reach head
// means the document comes from a newer or unrelated schema, and the
// error carries the minimum app version the document declares a need
// for, when the version table knows it.
func (g *Gate) CheckAndTransform(doc map[string]any) (map[string]any, error) {
	declared, _ := doc["migration_version"].(string)
	if declared == "" {
		return nil, &migration.MissingVersionError{}
	}

	head, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("project: resolve schema head: %w", err)
	}
	if head == "" || declared == head {
		return doc, nil
	}

	chain, err := g.resolver.ResolveChain(declared, head)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 || chain[len(chain)-1] != head {
		required, _ := g.versions.MinVersion(declared)
		g.logger.Warn("import blocked, no transformation path to current schema",
			"declared", declared, "head", head, "required_app_version", required)
		return nil, &migration.IncompatibleVersionError{Declared: declared, Required: required}
	}

	g.logger.Info("transforming import", "declared", declared, "head", head, "hops", len(chain))
	out := g.engine.Apply(doc, chain)
	out["migration_version"] = head
	return out, nil
}
