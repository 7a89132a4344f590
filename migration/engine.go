// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

// Engine applies chains of field mappings to exported documents.
//
// Apply is a pure transformation: the input tree is never mutated, a
// rewritten copy is returned. Callers that keep the original document
// around never observe partial rewrites.
type Engine struct {
	table *MappingTable
}

// NewEngine creates an engine reading renames from the given table.
func NewEngine(table *MappingTable) *Engine {
	return &Engine{table: table}
}

// Apply walks the chain oldest-first and, for each revision, rewrites a
// full copy of the document tree: every rename pair of every entity
// mapping moves old-key values to the new key wherever the old key
// appears, at any nesting depth, in maps and in list elements alike.
// One full-tree pass per revision keeps multi-hop renames composing
// (a->b at one revision, b->c at a later one yields c).
//
// A node without the old field is skipped, not an error: a revision's
// rename need not apply to every entity instance.
func (e *Engine) Apply(doc map[string]any, chain []string) map[string]any {
	out := copyTree(doc).(map[string]any)
	for _, revision := range chain {
		mappings := e.table.Mappings(revision)
		if len(mappings) == 0 {
			continue
		}
		renameNode(out, mappings)
	}
	return out
}

// renameNode applies every rename pair to node and recurses into every
// nested map and list element.
func renameNode(node any, mappings EntityMappings) {
	switch n := node.(type) {
	case map[string]any:
		for _, fields := range mappings {
			for oldField, newField := range fields {
				if v, ok := n[oldField]; ok {
					n[newField] = v
					delete(n, oldField)
				}
			}
		}
		for _, v := range n {
			renameNode(v, mappings)
		}
	case []any:
		for _, item := range n {
			renameNode(item, mappings)
		}
	}
}

// copyTree deep-copies a JSON-shaped tree of maps, slices, and
// primitives.
func copyTree(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = copyTree(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = copyTree(v)
		}
		return out
	default:
		return n
	}
}
