// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wordhord/wordhord/migration"
	"github.com/wordhord/wordhord/pkg/validation"
	"github.com/wordhord/wordhord/project"
)

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.service.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		printMuted("No projects yet; create one with 'wordhord project import'")
		return nil
	}

	printHeading("%d project(s)", len(summaries))
	for _, s := range summaries {
		printDetail("%s  %-40s  %d sentence(s)", s.ID, s.Name, s.Sentences)
	}
	return nil
}

func runProjectImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	importer := project.NewImporter(a.service, a.gate(), logger.Slog())
	p, err := importer.ImportFile(args[0])
	if err != nil {
		var incompatible *migration.IncompatibleVersionError
		if errors.As(err, &incompatible) && incompatible.Required != "" &&
			validation.CompareAppVersions(appVersion, incompatible.Required) < 0 {
			printMuted("This file needs wordhord %s or newer (you have %s)",
				incompatible.Required, appVersion)
		}
		return err
	}

	printOK("Imported %q as %s", p.Name, p.ID)
	printDetail("%d sentence(s)", len(p.Sentences))
	return nil
}

func runProjectExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	exporter := project.NewExporter(a.service, a.st, appVersion, logger.Slog())

	out := exportOut
	if out == "" {
		p, err := a.service.Load(args[0])
		if err != nil {
			return err
		}
		out = slugify(p.Name) + ".json"
	}
	if err := exporter.ExportFile(args[0], out); err != nil {
		return err
	}

	printOK("Exported to %s", out)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Delete(args[0]); err != nil {
		return err
	}
	printOK("Deleted project %s", args[0])
	return nil
}

// slugify turns a project name into a safe filename stem.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			if !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "project"
	}
	return s
}
