// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wordhord/wordhord/backup"
	"github.com/wordhord/wordhord/schema"
	"github.com/wordhord/wordhord/store"
)

// fakeRepo is a schema.Repository with pluggable behavior.
type fakeRepo struct {
	head       string
	headErr    error
	upgrade    func(ctx context.Context, st *store.Store) (string, error)
	upgradeHit int
}

func (r *fakeRepo) Revisions() ([]schema.Revision, error) { return nil, nil }
func (r *fakeRepo) Head() (string, error)                 { return r.head, r.headErr }
func (r *fakeRepo) Script(id string) (*schema.Script, error) {
	return nil, schema.ErrUnknownRevision
}
func (r *fakeRepo) Author(label string, statements []string) (*schema.Script, error) {
	return nil, errors.New("not supported")
}
func (r *fakeRepo) UpgradeToHead(ctx context.Context, st *store.Store) (string, error) {
	r.upgradeHit++
	if r.upgrade != nil {
		return r.upgrade(ctx, st)
	}
	if err := st.SetRevision(r.head); err != nil {
		return "", err
	}
	return r.head, nil
}

// fakeGuard is a Guard that counts calls and can be forced to fail.
type fakeGuard struct {
	createErr  error
	createHit  int
	restoreHit int
	appVersion string
	migVersion string
}

func (g *fakeGuard) Create(ctx context.Context) (*backup.Record, error) {
	g.createHit++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &backup.Record{Path: "fake.bak"}, nil
}

func (g *fakeGuard) Restore(ctx context.Context, rec *backup.Record) (string, string, error) {
	g.restoreHit++
	return g.appVersion, g.migVersion, nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testOrchestrator(t *testing.T, repo schema.Repository, st *store.Store, guard Guard, config Config) *Orchestrator {
	t.Helper()
	if config.AppVersion == "" {
		config.AppVersion = "0.4.2"
	}
	versions := NewVersionTable(tablePath(t, "versions.json"), nil)
	return NewOrchestrator(repo, st, guard, versions, config)
}

func TestMigrateNoPending(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.SetRevision("r3"))

	guard := &fakeGuard{}
	o := testOrchestrator(t, &fakeRepo{head: "r3"}, st, guard, Config{})

	result, err := o.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r3", result.MigrationVersion)
	require.Equal(t, StateSucceeded, o.State())
	require.Zero(t, guard.createHit)
}

func TestMigrateFreshStoreStampsHead(t *testing.T) {
	st := testStore(t)
	guard := &fakeGuard{}
	repo := &fakeRepo{head: "r3"}
	o := testOrchestrator(t, repo, st, guard, Config{})

	result, err := o.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r3", result.MigrationVersion)
	require.Equal(t, 1, guard.createHit)

	// Fresh init stamps directly; no incremental replay.
	require.Zero(t, repo.upgradeHit)
	rev, err := st.Revision()
	require.NoError(t, err)
	require.Equal(t, "r3", rev)
}

func TestMigrateBackupFailureAborts(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.SetRevision("r1"))

	guard := &fakeGuard{createErr: errors.New("disk full")}
	repo := &fakeRepo{head: "r3"}
	o := testOrchestrator(t, repo, st, guard, Config{})

	_, err := o.Migrate(context.Background())
	var backupErr *BackupFailedError
	require.True(t, errors.As(err, &backupErr))
	require.Equal(t, StateFailed, o.State())

	// The store was never touched.
	require.Zero(t, repo.upgradeHit)
	rev, err := st.Revision()
	require.NoError(t, err)
	require.Equal(t, "r1", rev)
}

func TestMigrateSkippedPastCeiling(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.SetRevision("r3"))

	guard := &fakeGuard{}
	o := testOrchestrator(t, &fakeRepo{head: "r4"}, st, guard, Config{SkipUntilVersion: "r2"})

	_, err := o.Migrate(context.Background())
	var skipped *MigrationSkippedError
	require.True(t, errors.As(err, &skipped))
	require.Equal(t, "r2", skipped.Ceiling)
	require.Equal(t, StateSkipped, o.State())
	require.Zero(t, guard.createHit)
}

func TestMigrateCeilingAheadStillRuns(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.SetRevision("r1"))

	guard := &fakeGuard{}
	o := testOrchestrator(t, &fakeRepo{head: "r3"}, st, guard, Config{SkipUntilVersion: "r2"})

	result, err := o.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r3", result.MigrationVersion)
}

func TestMigrateRollbackOnUpgradeFailure(t *testing.T) {
	// Real guard, real store: the snapshot must bring the store marker
	// and records back to their pre-upgrade state.
	st := testStore(t)
	require.NoError(t, st.SetRevision("r1"))
	require.NoError(t, st.PutRecord("token", "t1", map[string]any{"lemma_old": "hwæt"}))

	guard, err := backup.NewGuard(st, backup.Config{Dir: t.TempDir(), AppVersion: "0.4.2"})
	require.NoError(t, err)

	repo := &fakeRepo{
		head: "r3",
		upgrade: func(ctx context.Context, st *store.Store) (string, error) {
			// Half-apply, then fail.
			if err := st.SetRevision("r2"); err != nil {
				return "", err
			}
			if err := st.DeleteRecord("token", "t1"); err != nil {
				return "", err
			}
			return "", errors.New("statement failed")
		},
	}
	o := testOrchestrator(t, repo, st, guard, Config{AppVersion: "0.4.2"})

	_, err = o.Migrate(context.Background())
	var failed *MigrationFailedError
	require.True(t, errors.As(err, &failed))
	require.NotNil(t, failed.Recovered)
	require.Equal(t, "r1", failed.Recovered.MigrationVersion)
	require.Equal(t, "0.4.2", failed.Recovered.AppVersion)
	require.Equal(t, StateFailed, o.State())

	rev, err := st.Revision()
	require.NoError(t, err)
	require.Equal(t, "r1", rev)

	doc, err := st.GetRecord("token", "t1")
	require.NoError(t, err)
	require.Equal(t, "hwæt", doc["lemma_old"])
}

func TestShouldAbort(t *testing.T) {
	st := testStore(t)
	o := testOrchestrator(t, &fakeRepo{}, st, &fakeGuard{}, Config{})

	abort, err := o.ShouldAbort("r2")
	require.NoError(t, err)
	require.False(t, abort, "fresh store never aborts")

	require.NoError(t, st.SetRevision("r3"))

	abort, err = o.ShouldAbort("r2")
	require.NoError(t, err)
	require.True(t, abort)

	abort, err = o.ShouldAbort("r3")
	require.NoError(t, err)
	require.False(t, abort, "equal to ceiling is not past it")

	abort, err = o.ShouldAbort("")
	require.NoError(t, err)
	require.False(t, abort)
}

func TestHasPending(t *testing.T) {
	st := testStore(t)
	o := testOrchestrator(t, &fakeRepo{head: "r2"}, st, &fakeGuard{}, Config{})

	pending, err := o.HasPending()
	require.NoError(t, err)
	require.True(t, pending, "fresh store with migrations is pending")

	require.NoError(t, st.SetRevision("r2"))
	pending, err = o.HasPending()
	require.NoError(t, err)
	require.False(t, pending)

	require.NoError(t, st.SetRevision("r1"))
	pending, err = o.HasPending()
	require.NoError(t, err)
	require.True(t, pending)
}

func TestHasPendingEmptyRepository(t *testing.T) {
	st := testStore(t)
	o := testOrchestrator(t, &fakeRepo{head: ""}, st, &fakeGuard{}, Config{})

	pending, err := o.HasPending()
	require.NoError(t, err)
	require.False(t, pending)
}

func TestHasPendingConsultsVersionTable(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.SetRevision("r1"))

	versions := NewVersionTable(tablePath(t, "versions.json"), nil)
	require.NoError(t, versions.Record("r2", "0.4.2"))

	o := NewOrchestrator(&fakeRepo{head: "r2"}, st, &fakeGuard{}, versions, Config{AppVersion: "0.4.2"})

	// The running version expects r2 but the store sits at r1.
	pending, err := o.HasPending()
	require.NoError(t, err)
	require.True(t, pending)
}
