// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/wordhord/wordhord/migration"
	"github.com/wordhord/wordhord/schema"
)

func runRevisionNew(cmd *cobra.Command, args []string) error {
	if len(revisionStatements) == 0 {
		return fmt.Errorf("at least one --stmt is required")
	}

	repo, versions, mappings, err := openRepo()
	if err != nil {
		return err
	}

	script, err := repo.Author(args[0], revisionStatements)
	if err != nil {
		return err
	}

	if err := recordScript(script, versions, mappings); err != nil {
		return err
	}

	printOK("Created revision %s", script.ID)
	printDetail("script: %s", script.Path)
	if renames := migration.DiscoverRenames(script); len(renames) > 0 {
		printDetail("field renames recorded for %d entit(ies)", len(renames))
	}
	return nil
}

func runRevisionList(cmd *cobra.Command, args []string) error {
	repo, versions, _, err := openRepo()
	if err != nil {
		return err
	}

	revs, err := repo.Revisions()
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		printMuted("No migration scripts in %s", config.ScriptsDir)
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return err
	}

	printHeading("%d revision(s)", len(revs))
	for _, rev := range revs {
		marker := " "
		if rev.ID == head {
			marker = "*"
		}
		minV, _ := versions.MinVersion(rev.ID)
		line := fmt.Sprintf("%s %s  parent %-12s  %s", marker, rev.ID, orUnset(rev.Parent), rev.Label)
		if minV != "" {
			line += fmt.Sprintf("  (requires app %s)", minV)
		}
		if len(rev.ExtraParents) > 0 {
			line += fmt.Sprintf("  merges %s", strings.Join(rev.ExtraParents, ", "))
		}
		printDetail("%s", line)
	}
	return nil
}

func runRevisionScan(cmd *cobra.Command, args []string) error {
	repo, versions, mappings, err := openRepo()
	if err != nil {
		return err
	}
	n, err := rescanScripts(repo, versions, mappings)
	if err != nil {
		return err
	}
	printOK("Scanned %d revision(s)", n)
	return nil
}

func runRevisionWatch(cmd *cobra.Command, args []string) error {
	repo, versions, mappings, err := openRepo()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(repo.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", repo.Dir(), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := rescanScripts(repo, versions, mappings); err != nil {
		logger.Warn("initial scan failed", "error", err)
	}
	printHeading("Watching %s for script changes (Ctrl-C to stop)", repo.Dir())

	// Editors fire bursts of events per save; coalesce them.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".mig") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				pending = time.After(250 * time.Millisecond)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-pending:
			pending = nil
			n, err := rescanScripts(repo, versions, mappings)
			if err != nil {
				logger.Warn("rescan failed", "error", err)
				continue
			}
			printMuted("Rescanned %d revision(s)", n)
		}
	}
}

// rescanScripts rebuilds the mapping table entries and the head's
// version table entry from the scripts on disk.
func rescanScripts(repo *schema.DirRepository, versions *migration.VersionTable, mappings *migration.MappingTable) (int, error) {
	revs, err := repo.Revisions()
	if err != nil {
		return 0, err
	}
	for _, rev := range revs {
		script, err := repo.Script(rev.ID)
		if err != nil {
			return 0, err
		}
		if err := recordScript(script, nil, mappings); err != nil {
			return 0, err
		}
	}

	head, err := repo.Head()
	if err != nil {
		return 0, err
	}
	if head != "" {
		if err := versions.Record(head, appVersion); err != nil {
			return 0, err
		}
	}
	return len(revs), nil
}

// recordScript persists a script's derived metadata: its field renames,
// and (when a version table is given) the app version now required at
// its revision.
func recordScript(script *schema.Script, versions *migration.VersionTable, mappings *migration.MappingTable) error {
	if renames := migration.DiscoverRenames(script); len(renames) > 0 {
		if err := mappings.Record(script.ID, renames); err != nil {
			return err
		}
	}
	if versions != nil {
		if err := versions.Record(script.ID, appVersion); err != nil {
			return err
		}
	}
	return nil
}
