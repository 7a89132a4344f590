// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package migration

import "fmt"

// BackupFailedError means the pre-upgrade snapshot could not be taken.
// The store is never touched without a safety net, so the upgrade was
// not attempted.
type BackupFailedError struct {
	// Path is the backup location that could not be written.
	Path string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *BackupFailedError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("backup failed at %s: %v", e.Path, e.Wrapped)
	}
	return fmt.Sprintf("backup failed: %v", e.Wrapped)
}

// Unwrap returns the underlying error.
func (e *BackupFailedError) Unwrap() error {
	return e.Wrapped
}

// MigrationFailedError wraps an upgrade failure together with the store
// state the user was rolled back to.
type MigrationFailedError struct {
	// Wrapped is the original upgrade error.
	Wrapped error

	// Recovered describes the post-rollback store state, or nil if the
	// rollback could not determine it.
	Recovered *Result
}

// Error returns a formatted error message including the recovered state
// when known.
func (e *MigrationFailedError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("migration failed: %v (store restored to app %s, revision %s)",
			e.Wrapped, e.Recovered.AppVersion, e.Recovered.MigrationVersion)
	}
	return fmt.Sprintf("migration failed: %v (recovered state unknown)", e.Wrapped)
}

// Unwrap returns the underlying error.
func (e *MigrationFailedError) Unwrap() error {
	return e.Wrapped
}

// MigrationSkippedError reports a deliberate no-op: the user's version
// ceiling blocks further upgrades. Not a failure, but surfaced as an
// error so callers cannot mistake a pinned store for an upgraded one.
type MigrationSkippedError struct {
	// Ceiling is the configured skip_until_version value.
	Ceiling string
}

// Error returns a formatted error message.
func (e *MigrationSkippedError) Error() string {
	return fmt.Sprintf("migration skipped: store is pinned past configured ceiling %q", e.Ceiling)
}

// MissingVersionError means an import document carries no origin
// revision. Every export must declare the revision it was produced
// under.
type MissingVersionError struct{}

// Error returns a formatted error message.
func (e *MissingVersionError) Error() string {
	return "import document is missing migration_version"
}

// IncompatibleVersionError means no transformation path exists from the
// document's declared revision to the revision the running code
// expects.
type IncompatibleVersionError struct {
	// Declared is the document's origin revision.
	Declared string

	// Required is the minimum application version able to read the
	// document, or "" when unknown.
	Required string
}

// Error returns a user-actionable message: upgrade to Required when it
// is known.
func (e *IncompatibleVersionError) Error() string {
	if e.Required != "" {
		return fmt.Sprintf("this document requires application version %s or later (exported at revision %s)",
			e.Required, e.Declared)
	}
	return fmt.Sprintf("document revision %s is not compatible with this application version", e.Declared)
}
