// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import (
	"context"
	"io"
	"log/slog"

	"github.com/wordhord/wordhord/backup"
	"github.com/wordhord/wordhord/schema"
	"github.com/wordhord/wordhord/store"
)

// Guard is the slice of the backup package the orchestrator needs.
// Satisfied by *backup.Guard; faked in tests to force failures.
type Guard interface {
	Create(ctx context.Context) (*backup.Record, error)
	Restore(ctx context.Context, rec *backup.Record) (appVersion, migrationVersion string, err error)
}

// State is the orchestrator's position in the upgrade state machine.
type State int

const (
	// StateIdle means no upgrade has been attempted yet.
	StateIdle State = iota

	// StateBackingUp means the pre-upgrade snapshot is being taken.
	StateBackingUp

	// StateUpgrading means the script repository is mutating the store.
	StateUpgrading

	// StateRollingBack means a failed upgrade is being undone from the
	// snapshot.
	StateRollingBack

	// StateSucceeded is the successful terminal state.
	StateSucceeded

	// StateFailed is the failed terminal state; the store was rolled
	// back (or the rollback outcome is reported in the error).
	StateFailed

	// StateSkipped is the terminal state for a ceiling-blocked no-op.
	StateSkipped
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackingUp:
		return "backing-up"
	case StateUpgrading:
		return "upgrading"
	case StateRollingBack:
		return "rolling-back"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result describes store state after a successful operation.
type Result struct {
	// AppVersion is the running application version.
	AppVersion string

	// MigrationVersion is the store's schema revision.
	MigrationVersion string
}

// Config configures the Orchestrator. All values are threaded in
// explicitly by the caller; the orchestrator reads no ambient settings.
type Config struct {
	// AppVersion is the running application version, stamped into
	// results.
	AppVersion string

	// SkipUntilVersion is the user's revision ceiling. When the store
	// is already past it, Migrate becomes a deliberate no-op. Empty
	// disables the guard.
	SkipUntilVersion string

	// Logger receives state transitions. If nil, logging is disabled.
	Logger *slog.Logger
}

// Orchestrator runs backup-guarded schema upgrades.
//
// It must run to completion before any other component opens a store
// handle: exclusive access over the whole backing-up and upgrading span
// is what keeps concurrent readers from observing a half-upgraded
// store. There is no internal locking; process-start ordering is the
// mutual exclusion mechanism for this single-process tool.
type Orchestrator struct {
	repo     schema.Repository
	st       *store.Store
	guard    Guard
	versions *VersionTable
	config   Config
	logger   *slog.Logger
	state    State
}

// NewOrchestrator wires an orchestrator over the script repository,
// the store it upgrades, the backup guard protecting it, and the
// version metadata table consulted by the pending check.
func NewOrchestrator(repo schema.Repository, st *store.Store, guard Guard, versions *VersionTable, config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		repo:     repo,
		st:       st,
		guard:    guard,
		versions: versions,
		config:   config,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the orchestrator's current state machine position.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.logger.Debug("migration state transition", "from", o.state.String(), "to", s.String())
	o.state = s
}

// ShouldAbort reports whether the store's revision is already past the
// configured ceiling. Revision ids are compared as plain strings, the
// same ordering the ceiling was written against.
func (o *Orchestrator) ShouldAbort(ceiling string) (bool, error) {
	if ceiling == "" {
		return false, nil
	}
	current, err := o.st.Revision()
	if err != nil {
		return false, err
	}
	return current != "" && current > ceiling, nil
}

// HasPending reports whether the store is behind the code's head
// revision. A fresh store is pending as soon as any migration exists.
// The version metadata table, when it has entries for the running app
// version, is consulted so a store matching the app's expected revision
// but behind head still reports pending.
func (o *Orchestrator) HasPending() (bool, error) {
	current, err := o.st.Revision()
	if err != nil {
		return false, err
	}
	head, err := o.repo.Head()
	if err != nil {
		return false, err
	}

	if current == "" {
		return head != "", nil
	}
	if head == "" {
		return false, nil
	}

	expected := o.versions.RevisionsForVersion(o.config.AppVersion)
	if len(expected) > 0 {
		for _, rev := range expected {
			if rev == current {
				return current != head, nil
			}
		}
		return true, nil
	}
	return current != head, nil
}

// Migrate brings the store to the code's head revision under a backup
// guard.
//
// The walk through the state machine: a ceiling check first
// (MigrationSkippedError), then the snapshot (BackupFailedError aborts
// before the store is touched), then the upgrade. A fresh store with no
// schema marker is initialized directly at head with no incremental
// hops. Any upgrade failure triggers a rollback from the snapshot and
// surfaces as MigrationFailedError carrying the recovered versions.
func (o *Orchestrator) Migrate(ctx context.Context) (*Result, error) {
	pending, err := o.HasPending()
	if err != nil {
		return nil, err
	}
	if !pending {
		current, err := o.st.Revision()
		if err != nil {
			return nil, err
		}
		o.logger.Info("no pending migrations", "revision", current)
		o.setState(StateSucceeded)
		return &Result{AppVersion: o.config.AppVersion, MigrationVersion: current}, nil
	}

	if o.config.SkipUntilVersion != "" {
		abort, err := o.ShouldAbort(o.config.SkipUntilVersion)
		if err != nil {
			return nil, err
		}
		if abort {
			o.setState(StateSkipped)
			return nil, &MigrationSkippedError{Ceiling: o.config.SkipUntilVersion}
		}
	}

	o.setState(StateBackingUp)
	rec, err := o.guard.Create(ctx)
	if err != nil {
		o.setState(StateFailed)
		return nil, &BackupFailedError{Wrapped: err}
	}

	o.setState(StateUpgrading)
	result, upgradeErr := o.upgrade(ctx)
	if upgradeErr != nil {
		o.setState(StateRollingBack)
		recovered := o.rollback(ctx, rec)
		o.setState(StateFailed)
		return nil, &MigrationFailedError{Wrapped: upgradeErr, Recovered: recovered}
	}

	o.setState(StateSucceeded)
	o.logger.Info("migration complete", "revision", result.MigrationVersion)
	return result, nil
}

// upgrade runs the UPGRADING step: fresh-init or incremental.
func (o *Orchestrator) upgrade(ctx context.Context) (*Result, error) {
	current, err := o.st.Revision()
	if err != nil {
		return nil, err
	}

	if current == "" {
		// Fresh store: materialize the current schema directly and
		// stamp it with head. No incremental hops to replay.
		head, err := o.repo.Head()
		if err != nil {
			return nil, err
		}
		if head != "" {
			if err := o.st.SetRevision(head); err != nil {
				return nil, err
			}
		}
		o.logger.Info("initialized fresh store", "revision", head)
		return &Result{AppVersion: o.config.AppVersion, MigrationVersion: head}, nil
	}

	head, err := o.repo.UpgradeToHead(ctx, o.st)
	if err != nil {
		return nil, err
	}
	return &Result{AppVersion: o.config.AppVersion, MigrationVersion: head}, nil
}

// rollback restores the pre-upgrade snapshot, returning the recovered
// versions or nil when even that could not be determined. The original
// upgrade error always wins; rollback problems are logged, not
// returned.
func (o *Orchestrator) rollback(ctx context.Context, rec *backup.Record) *Result {
	appVersion, migrationVersion, err := o.guard.Restore(ctx, rec)
	if err != nil {
		o.logger.Error("rollback failed, store state is unknown", "error", err)
		return nil
	}

	if migrationVersion == "" {
		// Older sidecars may lack versions; fall back to the restored
		// store's own marker.
		if rev, revErr := o.st.Revision(); revErr == nil {
			migrationVersion = rev
		}
	}
	return &Result{AppVersion: appVersion, MigrationVersion: migrationVersion}
}

var _ Guard = (*backup.Guard)(nil)
