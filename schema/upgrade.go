// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"context"
	"fmt"

	"github.com/wordhord/wordhord/store"
)

// UpgradeToHead walks the primary-parent lineage from head back to the
// store's revision marker, then applies the intervening scripts oldest
// first, stamping the marker after every hop. The caller is responsible
// for taking a backup first: statement execution rewrites records in
// place and is not reversible.
func (r *DirRepository) UpgradeToHead(ctx context.Context, st *store.Store) (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", err
	}
	if head == "" {
		return "", ErrNoHead
	}

	current, err := st.Revision()
	if err != nil {
		return "", err
	}
	if current == head {
		return head, nil
	}

	chain, err := r.lineage(current, head)
	if err != nil {
		return "", err
	}

	for _, id := range chain {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		script, err := r.Script(id)
		if err != nil {
			return "", err
		}
		if err := r.applyScript(st, script); err != nil {
			return "", fmt.Errorf("schema: apply revision %s: %w", id, err)
		}
		if err := st.SetRevision(id); err != nil {
			return "", err
		}
		r.logger.Info("applied migration", "revision", id, "label", script.Label)
	}
	return head, nil
}

// lineage returns the revision ids strictly after from, up to and
// including to, following primary parents only. from == "" means the
// root of the lineage.
func (r *DirRepository) lineage(from, to string) ([]string, error) {
	revs, err := r.Revisions()
	if err != nil {
		return nil, err
	}
	parents := make(map[string]string, len(revs))
	known := make(map[string]bool, len(revs))
	for _, rev := range revs {
		parents[rev.ID] = rev.Parent
		known[rev.ID] = true
	}
	if !known[to] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRevision, to)
	}

	var reversed []string
	cur := to
	for {
		reversed = append(reversed, cur)
		parent, ok := parents[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRevision, cur)
		}
		if parent == from {
			break
		}
		if parent == "" {
			// Walked past the root without meeting from.
			return nil, fmt.Errorf("%w: marker %q, head %q", ErrOffLineage, from, to)
		}
		cur = parent
	}

	chain := make([]string, len(reversed))
	for i, id := range reversed {
		chain[len(reversed)-1-i] = id
	}
	return chain, nil
}

// applyScript executes every alteration statement of a script against
// the store.
func (r *DirRepository) applyScript(st *store.Store, script *Script) error {
	for _, stmt := range script.Statements {
		if err := applyStatement(st, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt.Raw, err)
		}
	}
	return nil
}

func applyStatement(st *store.Store, stmt Statement) error {
	switch stmt.Op {
	case OpRenameField:
		_, err := st.RewriteRecords(stmt.Entity, func(doc map[string]any) (map[string]any, error) {
			if v, ok := doc[stmt.Field]; ok {
				doc[stmt.NewField] = v
				delete(doc, stmt.Field)
			}
			return doc, nil
		})
		return err
	case OpAddField:
		_, err := st.RewriteRecords(stmt.Entity, func(doc map[string]any) (map[string]any, error) {
			if _, ok := doc[stmt.Field]; !ok {
				doc[stmt.Field] = nil
			}
			return doc, nil
		})
		return err
	case OpDropField:
		_, err := st.RewriteRecords(stmt.Entity, func(doc map[string]any) (map[string]any, error) {
			delete(doc, stmt.Field)
			return doc, nil
		})
		return err
	case OpCreateEntity:
		// Entities materialize on first write; nothing to do for the
		// key-value layout.
		return nil
	default:
		return fmt.Errorf("unsupported statement op %v", stmt.Op)
	}
}
