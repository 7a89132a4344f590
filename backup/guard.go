// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package backup is the safety envelope around destructive store
// operations: point-in-time snapshots with sidecar version metadata,
// and restore.
//
// Snapshots use Badger's native backup stream, gzip-compressed, hashed
// with SHA256, and written atomically (temp file, fsync, rename). Each
// snapshot has a sidecar JSON file recording the application and
// migration versions at backup time, so a restore can tell the user
// exactly what state they are back to.
package backup

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wordhord/wordhord/store"
)

var (
	// ErrCorrupted indicates a snapshot failed its content hash check.
	ErrCorrupted = errors.New("backup corrupted: content hash mismatch")

	// ErrNotFound indicates the snapshot file does not exist.
	ErrNotFound = errors.New("backup not found")
)

const (
	backupSuffix   = ".bak"
	metadataSuffix = ".json"
	timeFormat     = "2006-01-02_150405.000"
)

// Metadata is the sidecar document co-located with each snapshot.
type Metadata struct {
	// ApplicationVersion is the app version that wrote the snapshot.
	ApplicationVersion string `json:"application_version"`

	// MigrationVersion is the store's schema revision at backup time.
	MigrationVersion string `json:"migration_version"`

	// CreatedAt is the snapshot time (Unix milliseconds UTC).
	CreatedAt int64 `json:"created_at"`

	// ContentHash is the SHA256 hex digest of the compressed snapshot.
	ContentHash string `json:"content_hash"`

	// UncompressedSize is the backup stream size before compression.
	UncompressedSize int64 `json:"uncompressed_size"`

	// CompressedSize is the snapshot file size on disk.
	CompressedSize int64 `json:"compressed_size"`
}

// Age returns how old the snapshot is.
func (m *Metadata) Age() time.Duration {
	return time.Since(time.UnixMilli(m.CreatedAt))
}

// Record is a snapshot plus its sidecar metadata.
type Record struct {
	// Path is the snapshot file location.
	Path string

	// MetadataPath is the sidecar location ("" if the sidecar is
	// missing).
	MetadataPath string

	// Metadata holds the sidecar contents; zero-valued when the
	// sidecar is missing or unreadable.
	Metadata Metadata
}

// Config configures the Guard.
type Config struct {
	// Dir is the directory snapshots are written to.
	Dir string

	// AppVersion is stamped into every sidecar.
	AppVersion string

	// MaxBackups is how many snapshots to retain; older ones are
	// pruned after each successful Create. Default: 5.
	MaxBackups int

	// Logger receives diagnostics. If nil, logging is disabled.
	Logger *slog.Logger
}

// Guard creates and restores store snapshots.
type Guard struct {
	st     *store.Store
	config Config
	logger *slog.Logger
}

// NewGuard creates a guard for the given store, creating the backup
// directory if needed.
func NewGuard(st *store.Store, config Config) (*Guard, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("backup: directory is required")
	}
	if err := os.MkdirAll(config.Dir, 0750); err != nil {
		return nil, fmt.Errorf("backup: create directory %s: %w", config.Dir, err)
	}
	if config.MaxBackups <= 0 {
		config.MaxBackups = 5
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guard{st: st, config: config, logger: logger}, nil
}

// Create snapshots the full store and writes the sidecar metadata.
// Failure here is a hard error: destructive operations must not run
// without a snapshot in place.
func (g *Guard) Create(ctx context.Context) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	migrationVersion, err := g.st.Revision()
	if err != nil {
		return nil, fmt.Errorf("backup: read store revision: %w", err)
	}

	stamp := time.Now().UTC().Format(timeFormat)
	finalPath := filepath.Join(g.config.Dir, "store_"+stamp+backupSuffix)

	tmp, err := os.CreateTemp(g.config.Dir, "store_*.tmp")
	if err != nil {
		return nil, fmt.Errorf("backup: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	gz := gzip.NewWriter(io.MultiWriter(tmp, hasher))
	counter := &countingWriter{w: gz}

	if _, err := g.st.Backup(counter); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("backup: write snapshot stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("backup: close gzip stream: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("backup: sync snapshot: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("backup: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, finalPath); err != nil {
		return nil, fmt.Errorf("backup: finalize snapshot: %w", err)
	}

	metadata := Metadata{
		ApplicationVersion: g.config.AppVersion,
		MigrationVersion:   migrationVersion,
		CreatedAt:          time.Now().UnixMilli(),
		ContentHash:        hex.EncodeToString(hasher.Sum(nil)),
		UncompressedSize:   counter.n,
		CompressedSize:     info.Size(),
	}
	metadataPath := strings.TrimSuffix(finalPath, backupSuffix) + metadataSuffix
	if err := writeMetadata(metadataPath, &metadata); err != nil {
		os.Remove(finalPath)
		return nil, err
	}

	g.logger.Info("created store backup",
		"path", finalPath,
		"migration_version", migrationVersion,
		"compressed_bytes", metadata.CompressedSize)

	if err := g.prune(); err != nil {
		// Retention is best effort; the snapshot itself succeeded.
		g.logger.Warn("backup retention cleanup failed", "error", err)
	}

	return &Record{Path: finalPath, MetadataPath: metadataPath, Metadata: metadata}, nil
}

// Restore replaces live store contents with the snapshot and returns
// the versions recorded at backup time. The store is dropped and
// reloaded in one call; the snapshot's content hash is verified before
// anything is touched.
func (g *Guard) Restore(ctx context.Context, rec *Record) (appVersion, migrationVersion string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	f, err := os.Open(rec.Path)
	if os.IsNotExist(err) {
		return "", "", fmt.Errorf("%w: %s", ErrNotFound, rec.Path)
	}
	if err != nil {
		return "", "", fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer f.Close()

	if rec.Metadata.ContentHash != "" {
		if err := verifyHash(f, rec.Metadata.ContentHash); err != nil {
			return "", "", err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", "", fmt.Errorf("backup: rewind snapshot: %w", err)
		}
	}

	if err := g.st.DropAll(); err != nil {
		return "", "", fmt.Errorf("backup: clear store before restore: %w", err)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", "", fmt.Errorf("backup: open gzip stream: %w", err)
	}
	defer gz.Close()

	if err := g.st.Load(gz); err != nil {
		return "", "", fmt.Errorf("backup: load snapshot stream: %w", err)
	}

	g.logger.Info("restored store backup",
		"path", rec.Path,
		"app_version", rec.Metadata.ApplicationVersion,
		"migration_version", rec.Metadata.MigrationVersion)

	return rec.Metadata.ApplicationVersion, rec.Metadata.MigrationVersion, nil
}

// verifyHash checks the file's SHA256 against the sidecar hash.
func verifyHash(f *os.File, expected string) error {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("backup: hash snapshot: %w", err)
	}
	if hex.EncodeToString(hasher.Sum(nil)) != expected {
		return ErrCorrupted
	}
	return nil
}

func writeMetadata(path string, m *Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("backup: marshal metadata: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("backup: write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("backup: finalize metadata: %w", err)
	}
	return nil
}

// countingWriter counts bytes flowing into the compressed stream.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
