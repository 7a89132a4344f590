// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validators for values that end up in
// store keys, file names, or migration script headers. Validating here
// prevents path traversal and keeps the revision graph parseable.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// revisionPattern matches migration revision identifiers: 6-40 lowercase
// hex characters, the shape produced by authoring (12 hex chars) and by
// hand-written scripts.
var revisionPattern = regexp.MustCompile(`^[0-9a-f]{6,40}$`)

// entityPattern matches entity type names used in alteration statements
// and store key prefixes: lowercase identifier, max 32 chars.
var entityPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// fieldPattern matches entity field names in rename statements.
var fieldPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidateRevisionID validates a migration revision identifier.
func ValidateRevisionID(rev string) error {
	if rev == "" {
		return fmt.Errorf("revision id cannot be empty")
	}
	if !revisionPattern.MatchString(rev) {
		return fmt.Errorf("invalid revision id: %q (must be 6-40 lowercase hex chars)", rev)
	}
	return nil
}

// ValidateEntityName validates an entity type name.
func ValidateEntityName(name string) error {
	if name == "" {
		return fmt.Errorf("entity name cannot be empty")
	}
	if !entityPattern.MatchString(name) {
		return fmt.Errorf("invalid entity name: %q (must be a lowercase identifier)", name)
	}
	return nil
}

// ValidateFieldName validates an entity field name.
func ValidateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("invalid field name: %q (must be a lowercase identifier)", name)
	}
	return nil
}

// ValidateAppVersion validates an application version string like "0.4.2".
func ValidateAppVersion(version string) error {
	if version == "" {
		return fmt.Errorf("app version cannot be empty")
	}
	if !semver.IsValid(canonicalVersion(version)) {
		return fmt.Errorf("invalid app version: %q (must be a semantic version)", version)
	}
	return nil
}

// CompareAppVersions compares two application version strings per semver
// rules, returning -1, 0, or +1. Invalid versions compare as strings so
// the caller still gets a deterministic order.
func CompareAppVersions(a, b string) int {
	ca, cb := canonicalVersion(a), canonicalVersion(b)
	if semver.IsValid(ca) && semver.IsValid(cb) {
		return semver.Compare(ca, cb)
	}
	return strings.Compare(a, b)
}

// canonicalVersion adds the "v" prefix x/mod/semver expects.
func canonicalVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
