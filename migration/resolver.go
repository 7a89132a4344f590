// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/wordhord/wordhord/schema"
)

// Resolver computes ordered revision chains between two revisions of
// the script repository.
//
// A chain is oldest-first, excludes the starting revision, and includes
// the ending revision. Resolution that hits a dead end is not an error:
// the returned chain simply does not end in the target revision, and
// callers translate that into a compatibility failure. Errors are
// reserved for repository read failures.
type Resolver struct {
	repo   RevisionSource
	logger *slog.Logger
}

// RevisionSource is the slice of the script repository the resolver
// needs: revision enumeration only.
type RevisionSource interface {
	Revisions() ([]schema.Revision, error)
}

// NewResolver creates a resolver over the given revision source. A nil
// logger disables diagnostics.
func NewResolver(repo RevisionSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{repo: repo, logger: logger}
}

// ResolveChain computes the chain from one revision to another. Either
// id may be "" meaning "no revision applied yet". The graph is rebuilt
// from the repository on every call; revision sets are small and this
// keeps the resolver stateless.
//
// For histories that contain branches, the backward parent walk from
// the target picks the lineage that actually reaches it, so a correct
// chain is returned where a naive first-child walk would guess. When no
// backward path exists the forward walk runs anyway and its partial
// chain is returned as the dead-end signal.
func (r *Resolver) ResolveChain(from, to string) ([]string, error) {
	if from == to {
		return nil, nil
	}

	revs, err := r.repo.Revisions()
	if err != nil {
		return nil, fmt.Errorf("migration: enumerate revisions: %w", err)
	}
	graph := NewGraph(revs)

	if chain, ok := backwardChain(graph, from, to); ok {
		return chain, nil
	}

	chain := r.forwardChain(graph, from, to)
	return chain, nil
}

// backwardChain walks primary parents from to back to from. Returns
// ok=false when from is not an ancestor of to.
func backwardChain(g *Graph, from, to string) ([]string, bool) {
	if to == "" || !g.Known(to) {
		return nil, false
	}

	var reversed []string
	cur := to
	visited := make(map[string]bool)
	for {
		if visited[cur] {
			// Cycle in the parent lineage; fall back to forward walk.
			return nil, false
		}
		visited[cur] = true
		reversed = append(reversed, cur)

		parent, ok := g.Parent(cur)
		if !ok {
			return nil, false
		}
		if parent == from {
			break
		}
		if parent == "" {
			return nil, false
		}
		cur = parent
	}

	chain := make([]string, len(reversed))
	for i, id := range reversed {
		chain[len(reversed)-1-i] = id
	}
	return chain, true
}

// forwardChain walks forward from from, taking the first child in
// discovery order at every step, until it reaches to or runs out of
// forward edges. A visited set guards against graph corruption loops.
// The partial chain it builds is the caller's dead-end evidence.
func (r *Resolver) forwardChain(g *Graph, from, to string) []string {
	var chain []string
	current := from
	visited := make(map[string]bool)

	for current != to {
		if visited[current] {
			r.logger.Warn("revision graph revisit, stopping walk", "revision", current)
			break
		}
		visited[current] = true

		kids := g.Children(current)
		if len(kids) == 0 {
			break
		}
		if len(kids) > 1 {
			r.logger.Warn("revision graph branches, following first child",
				"revision", current, "children", kids)
		}
		current = kids[0]
		chain = append(chain, current)
	}
	return chain
}
