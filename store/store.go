// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store provides the embedded project store backed by BadgerDB.
//
// Every persisted entity is a JSON document keyed by entity type and id:
//
//	record:<entity>:<id>  ->  JSON object
//
// One reserved key, schema:revision, holds the migration revision the
// store's data shape corresponds to. A store without that marker has
// never been initialized by the migration orchestrator.
package store

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Record keys embed the entity type so one entity's records
// can be iterated as a prefix scan.
const (
	revisionKey  = "schema:revision"
	recordPrefix = "record:"
)

// Config holds configuration for the project store.
type Config struct {
	// Path is the directory for the store files. Required unless
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Used in
	// tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil, Badger
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes, single
// version retention.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for tests: no disk I/O, no
// sync overhead.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the embedded project store. Safe for concurrent use; the
// migration orchestrator is expected to run before any other component
// opens a handle (see the concurrency notes in the migration package).
type Store struct {
	db *badger.DB
}

// Open opens the store at the configured path, creating the directory
// if needed. The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("store: path is required for persistent databases")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %s: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Revision returns the store's schema revision marker, or "" if the
// store has never been stamped (fresh store).
func (s *Store) Revision() (string, error) {
	var rev string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(revisionKey))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rev = string(val)
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: read revision marker: %w", err)
	}
	return rev, nil
}

// SetRevision stamps the store with a schema revision marker.
func (s *Store) SetRevision(rev string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(revisionKey), []byte(rev))
	})
	if err != nil {
		return fmt.Errorf("store: write revision marker: %w", err)
	}
	return nil
}

// Backup streams a full backup of the store to w using Badger's native
// backup format. Returns the version timestamp of the backup.
func (s *Store) Backup(w io.Writer) (uint64, error) {
	return s.db.Backup(w, 0)
}

// Load replaces store contents from a backup stream produced by Backup.
// The caller must DropAll first for a faithful point-in-time restore.
func (s *Store) Load(r io.Reader) error {
	return s.db.Load(r, 16)
}

// DropAll deletes everything in the store. Used only by restore.
func (s *Store) DropAll() error {
	return s.db.DropAll()
}

// Size returns the on-disk LSM and value log sizes in bytes.
func (s *Store) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// RunValueLogGC runs one round of value log garbage collection.
// Harmless to call on small stores; Badger returns ErrNoRewrite when
// there is nothing to collect.
func (s *Store) RunValueLogGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite || err == badger.ErrRejected {
		return nil
	}
	return err
}
