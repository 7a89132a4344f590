// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package migration is the compatibility engine between schema
// revisions: it resolves transformation chains over the revision graph,
// applies field renames to exported documents, and orchestrates
// backup-guarded store upgrades.
package migration

import (
	"sort"

	"github.com/wordhord/wordhord/schema"
)

// Graph is an in-memory model of the script repository's revision DAG,
// built once per resolution request. Forward edges follow the primary
// parent only; merge revisions keep their extra parents on record so
// callers can flag the ambiguity instead of silently guessing lineage.
type Graph struct {
	children map[string][]string
	parents  map[string]string
	extra    map[string][]string
	known    map[string]bool
}

// NewGraph builds a graph from the repository's revisions. Children are
// appended in discovery order, which is what makes forward walks
// deterministic for a given repository.
func NewGraph(revs []schema.Revision) *Graph {
	g := &Graph{
		children: make(map[string][]string, len(revs)),
		parents:  make(map[string]string, len(revs)),
		extra:    make(map[string][]string),
		known:    make(map[string]bool, len(revs)),
	}
	for _, rev := range revs {
		g.known[rev.ID] = true
		g.parents[rev.ID] = rev.Parent
		g.children[rev.Parent] = append(g.children[rev.Parent], rev.ID)
		if len(rev.ExtraParents) > 0 {
			g.extra[rev.ID] = rev.ExtraParents
		}
	}
	return g
}

// Known reports whether a revision id exists in the graph.
func (g *Graph) Known(id string) bool {
	return g.known[id]
}

// Children returns the revisions whose primary parent is id, in
// discovery order. The empty id keys the root revisions.
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// Parent returns the primary parent of a revision; ok is false for
// unknown revisions. The root revision has parent "".
func (g *Graph) Parent(id string) (parent string, ok bool) {
	parent, ok = g.parents[id]
	return parent, ok
}

// IsMerge reports whether a revision has more than one parent.
func (g *Graph) IsMerge(id string) bool {
	return len(g.extra[id]) > 0
}

// BranchPoints returns, sorted, every revision with more than one
// child. A branch point makes forward resolution ambiguous past it.
func (g *Graph) BranchPoints() []string {
	var points []string
	for id, kids := range g.children {
		if id != "" && len(kids) > 1 {
			points = append(points, id)
		}
	}
	sort.Strings(points)
	return points
}
