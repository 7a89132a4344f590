// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "wordhord",
		Short: "A CLI for managing Old English annotation projects",
		Long: `Wordhord manages annotation projects for Old English texts:
a local Badger store of sentences, tokens, and glosses, with versioned
schema migrations, backup-guarded upgrades, and a portable JSON
interchange format.`,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the local store",
		Long: `Brings the store to the newest schema revision. A compressed
snapshot is taken first; if any migration step fails the store is
restored from it and the command reports the recovered state.`,
		RunE: runMigrate,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the store's schema revision and pending migrations",
		RunE:  runStatus,
	}

	// Backup administration commands
	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Manage store snapshots",
	}
	backupCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Snapshot the store to the backup directory",
		RunE:  runBackupCreate,
	}
	backupListCmd = &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE:  runBackupList,
	}
	backupRestoreCmd = &cobra.Command{
		Use:   "restore [snapshot-file]",
		Short: "DANGER: Replace the store contents with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupRestore,
	}

	// Project commands
	projectCmd = &cobra.Command{
		Use:   "project",
		Short: "Manage annotation projects",
	}
	projectListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored projects",
		RunE:  runProjectList,
	}
	projectImportCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Import a project from an interchange JSON file",
		Long: `Reads an exported project file. Exports from older application
versions are transformed to the current schema on the way in; exports
from newer versions are rejected with the version you would need.`,
		Args: cobra.ExactArgs(1),
		RunE: runProjectImport,
	}
	projectExportCmd = &cobra.Command{
		Use:   "export [project-id]",
		Short: "Export a project to an interchange JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectExport,
	}
	projectDeleteCmd = &cobra.Command{
		Use:   "delete [project-id]",
		Short: "Delete a project and all of its content",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectDelete,
	}
	exportOut string

	// Revision tooling for maintaining the migration scripts.
	revisionCmd = &cobra.Command{
		Use:   "revision",
		Short: "Manage schema migration scripts",
	}
	revisionNewCmd = &cobra.Command{
		Use:   "new [label]",
		Short: "Author a new migration script on top of the current head",
		Args:  cobra.ExactArgs(1),
		RunE:  runRevisionNew,
	}
	revisionListCmd = &cobra.Command{
		Use:   "list",
		Short: "List known schema revisions in order",
		RunE:  runRevisionList,
	}
	revisionScanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Rebuild the field mapping and version tables from the scripts",
		RunE:  runRevisionScan,
	}
	revisionWatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the scripts directory and rescan on changes",
		RunE:  runRevisionWatch,
	}
	revisionStatements []string
)

func init() {
	projectExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <name>.json)")
	revisionNewCmd.Flags().StringArrayVar(&revisionStatements, "stmt", nil,
		`migration statement, repeatable (e.g. "alter entity token rename field lemma_old to lemma")`)

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
	projectCmd.AddCommand(projectListCmd, projectImportCmd, projectExportCmd, projectDeleteCmd)
	revisionCmd.AddCommand(revisionNewCmd, revisionListCmd, revisionScanCmd, revisionWatchCmd)
	rootCmd.AddCommand(migrateCmd, statusCmd, backupCmd, projectCmd, revisionCmd)
}
