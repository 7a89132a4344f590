// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/wordhord/wordhord/migration"
	"github.com/wordhord/wordhord/store"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.migrate(cmd.Context())
	if err != nil {
		var skipped *migration.MigrationSkippedError
		if errors.As(err, &skipped) {
			printMuted("Migrations skipped: store is pinned past %s (skip_until_version)", skipped.Ceiling)
			return nil
		}
		var failed *migration.MigrationFailedError
		if errors.As(err, &failed) && failed.Recovered != nil {
			printDetail("Store was restored to app %s, revision %s",
				failed.Recovered.AppVersion, failed.Recovered.MigrationVersion)
		}
		return err
	}

	printOK("Store is at schema revision %s", orUnset(result.MigrationVersion))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	repo, _, _, err := openRepo()
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return err
	}

	st, err := store.Open(store.Config{
		Path:   expandPath(config.DataDir),
		Logger: logger.Slog(),
	})
	if err != nil {
		return err
	}
	defer st.Close()

	current, err := st.Revision()
	if err != nil {
		return err
	}

	printHeading("wordhord %s", appVersion)
	printDetail("store revision:  %s", orUnset(current))
	printDetail("schema head:     %s", orUnset(head))
	if config.Migration.SkipUntilVersion != "" {
		printDetail("pinned until:    %s", config.Migration.SkipUntilVersion)
	}
	if config.Migration.LastWorkingVersion != "" {
		printDetail("last working:    %s", config.Migration.LastWorkingVersion)
	}

	switch {
	case current == head:
		printOK("Up to date")
	case head == "":
		printMuted("No migration scripts found in %s", config.ScriptsDir)
	default:
		printMuted("Migrations pending; run 'wordhord migrate'")
	}
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
