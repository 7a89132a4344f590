// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func runBackupCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.guard.Create(cmd.Context())
	if err != nil {
		return err
	}

	printOK("Snapshot written to %s", rec.Path)
	printDetail("schema revision: %s", orUnset(rec.Metadata.MigrationVersion))
	printDetail("size: %s compressed (%s raw)",
		humanBytes(rec.Metadata.CompressedSize), humanBytes(rec.Metadata.UncompressedSize))
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.guard.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printMuted("No snapshots in %s", config.Backups.Dir)
		return nil
	}

	printHeading("%d snapshot(s) in %s", len(records), config.Backups.Dir)
	for _, rec := range records {
		if rec.Metadata.CreatedAt == 0 {
			printDetail("%s  (no metadata)", rec.Path)
			continue
		}
		created := time.UnixMilli(rec.Metadata.CreatedAt).Local().Format("2006-01-02 15:04:05")
		printDetail("%s  %s  app %s  revision %s  %s",
			rec.Path, created,
			rec.Metadata.ApplicationVersion,
			orUnset(rec.Metadata.MigrationVersion),
			humanBytes(rec.Metadata.CompressedSize))
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.guard.Open(args[0])
	if err != nil {
		return err
	}

	appV, migV, err := a.guard.Restore(cmd.Context(), rec)
	if err != nil {
		return err
	}

	printOK("Store restored from %s", rec.Path)
	printDetail("app version at backup time: %s", orUnset(appV))
	printDetail("schema revision: %s", orUnset(migV))
	return nil
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
