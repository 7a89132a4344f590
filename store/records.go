// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrRecordNotFound is returned when a record does not exist.
var ErrRecordNotFound = errors.New("record not found")

func recordKey(entity, id string) []byte {
	return []byte(recordPrefix + entity + ":" + id)
}

func entityPrefix(entity string) []byte {
	return []byte(recordPrefix + entity + ":")
}

// PutRecord stores a JSON document for the given entity type and id.
func (s *Store) PutRecord(entity, id string, doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal %s/%s: %w", entity, id, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(entity, id), data)
	})
	if err != nil {
		return fmt.Errorf("store: put %s/%s: %w", entity, id, err)
	}
	return nil
}

// GetRecord loads the JSON document for the given entity type and id.
func (s *Store) GetRecord(entity, id string) (map[string]any, error) {
	var doc map[string]any
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(entity, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, entity, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s/%s: %w", entity, id, err)
	}
	return doc, nil
}

// DeleteRecord removes a record. Deleting a missing record is not an
// error.
func (s *Store) DeleteRecord(entity, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(entity, id))
	})
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", entity, id, err)
	}
	return nil
}

// ListIDs returns the ids of all records of an entity type, in key
// order.
func (s *Store) ListIDs(entity string) ([]string, error) {
	prefix := entityPrefix(entity)
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", entity, err)
	}
	return ids, nil
}

// RewriteRecords loads every record of an entity type, passes it through
// fn, and writes the result back. Returns the number of rewritten
// records. Used by schema upgrades to apply alteration statements to
// stored data.
func (s *Store) RewriteRecords(entity string, fn func(doc map[string]any) (map[string]any, error)) (int, error) {
	ids, err := s.ListIDs(entity)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		doc, err := s.GetRecord(entity, id)
		if err != nil {
			return count, err
		}
		next, err := fn(doc)
		if err != nil {
			return count, fmt.Errorf("store: rewrite %s/%s: %w", entity, id, err)
		}
		if err := s.PutRecord(entity, id, next); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
