// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/wordhord/wordhord/store"
)

// ExportVersion is the interchange format version written into every
// envelope. Bumped only when the envelope layout itself changes;
// content schema changes are carried by MigrationVersion instead.
const ExportVersion = "1.0"

// Envelope is the interchange document written by export and read by
// import. MigrationVersion records the store's schema revision at
// export time; the import gate uses it to decide whether and how to
// transform the content.
type Envelope struct {
	ExportVersion    string    `json:"export_version" validate:"required"`
	AppVersion       string    `json:"app_version,omitempty"`
	MigrationVersion string    `json:"migration_version"`
	ExportedAt       time.Time `json:"exported_at,omitzero"`
	Project          Project   `json:"project" validate:"required"`
}

// Exporter writes projects out as interchange envelopes.
type Exporter struct {
	service    *Service
	st         *store.Store
	appVersion string
	logger     *slog.Logger
}

// NewExporter creates an exporter over the project service and the
// store whose revision marker stamps each envelope.
func NewExporter(service *Service, st *store.Store, appVersion string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{service: service, st: st, appVersion: appVersion, logger: logger}
}

// Export builds the envelope for a stored project, stamped with the
// store's current schema revision.
func (e *Exporter) Export(projectID string) (*Envelope, error) {
	p, err := e.service.Load(projectID)
	if err != nil {
		return nil, err
	}
	revision, err := e.st.Revision()
	if err != nil {
		return nil, fmt.Errorf("project: read store revision for export: %w", err)
	}
	return &Envelope{
		ExportVersion:    ExportVersion,
		AppVersion:       e.appVersion,
		MigrationVersion: revision,
		ExportedAt:       time.Now().UTC(),
		Project:          *p,
	}, nil
}

// ExportFile writes the envelope for a project to path as indented
// JSON.
func (e *Exporter) ExportFile(projectID, path string) error {
	env, err := e.Export(projectID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("project: marshal envelope: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("project: write export %s: %w", path, err)
	}
	e.logger.Info("exported project", "id", projectID, "path", path, "migration_version", env.MigrationVersion)
	return nil
}
