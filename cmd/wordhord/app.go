// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/wordhord/wordhord/backup"
	"github.com/wordhord/wordhord/migration"
	"github.com/wordhord/wordhord/project"
	"github.com/wordhord/wordhord/schema"
	"github.com/wordhord/wordhord/store"
)

// app bundles the wired components every command works against.
type app struct {
	st       *store.Store
	repo     *schema.DirRepository
	guard    *backup.Guard
	versions *migration.VersionTable
	mappings *migration.MappingTable
	service  *project.Service
}

// openRepo wires the script repository and its metadata tables without
// touching the store. Revision tooling works on a machine that has no
// data yet.
func openRepo() (*schema.DirRepository, *migration.VersionTable, *migration.MappingTable, error) {
	scriptsDir := expandPath(config.ScriptsDir)
	repo, err := schema.NewDirRepository(scriptsDir, logger.Slog())
	if err != nil {
		return nil, nil, nil, err
	}
	versions := migration.NewVersionTable(filepath.Join(scriptsDir, "migration_versions.json"), logger.Slog())
	mappings := migration.NewMappingTable(filepath.Join(scriptsDir, "field_mappings.json"), logger.Slog())
	return repo, versions, mappings, nil
}

// openApp opens the store and wires every component. When migrate is
// true, pending schema migrations run first, before anything else gets
// a handle on the data. A store pinned by skip_until_version is left at
// its current revision with a warning.
func openApp(ctx context.Context, migrate bool) (*app, error) {
	repo, versions, mappings, err := openRepo()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.Config{
		Path:   expandPath(config.DataDir),
		Logger: logger.Slog(),
	})
	if err != nil {
		return nil, err
	}

	guard, err := backup.NewGuard(st, backup.Config{
		Dir:        expandPath(config.Backups.Dir),
		AppVersion: appVersion,
		MaxBackups: config.Backups.Max,
		Logger:     logger.Slog(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		st:       st,
		repo:     repo,
		guard:    guard,
		versions: versions,
		mappings: mappings,
		service:  project.NewService(st, logger.Slog()),
	}

	if migrate {
		if _, err := a.migrate(ctx); err != nil {
			var skipped *migration.MigrationSkippedError
			if errors.As(err, &skipped) {
				logger.Warn("store is pinned, running at its current revision",
					"ceiling", skipped.Ceiling)
			} else {
				st.Close()
				return nil, err
			}
		}
	}
	return a, nil
}

// migrate runs the orchestrator and records the app version as
// last-working on success.
func (a *app) migrate(ctx context.Context) (*migration.Result, error) {
	o := migration.NewOrchestrator(a.repo, a.st, a.guard, a.versions, migration.Config{
		AppVersion:       appVersion,
		SkipUntilVersion: config.Migration.SkipUntilVersion,
		Logger:           logger.Slog(),
	})
	result, err := o.Migrate(ctx)
	if err != nil {
		return nil, err
	}

	if config.Migration.LastWorkingVersion != appVersion {
		config.Migration.LastWorkingVersion = appVersion
		if err := saveConfig(configPath, config); err != nil {
			// The migration itself succeeded; the marker is advisory.
			logger.Warn("could not record last working version", "error", err)
		}
	}
	return result, nil
}

// gate builds the import compatibility gate over the wired tables.
func (a *app) gate() *project.Gate {
	resolver := migration.NewResolver(a.repo, logger.Slog())
	engine := migration.NewEngine(a.mappings)
	return project.NewGate(resolver, engine, a.versions, a.repo, logger.Slog())
}

// Close releases the store.
func (a *app) Close() {
	if err := a.st.Close(); err != nil {
		logger.Error("closing store", "error", err)
	}
}
