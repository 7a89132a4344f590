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

	"github.com/go-playground/validator/v10"
)

// Importer reads interchange envelopes through the compatibility gate
// and materializes them as stored projects.
type Importer struct {
	service  *Service
	gate     *Gate
	validate *validator.Validate
	logger   *slog.Logger
}

// NewImporter creates an importer over the project service and gate.
func NewImporter(service *Service, gate *Gate, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{
		service:  service,
		gate:     gate,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ImportFile imports the envelope at path.
func (i *Importer) ImportFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("project: read import %s: %w", path, err)
	}
	return i.Import(data)
}

// Import runs the full import pipeline: raw decode, compatibility gate,
// typed decode, validation, then storage under fresh record ids. The
// gate runs before the typed decode so field renames land while the
// document is still schema-agnostic.
func (i *Importer) Import(data []byte) (*Project, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("project: parse import: %w", err)
	}

	transformed, err := i.gate.CheckAndTransform(raw)
	if err != nil {
		return nil, err
	}

	canonical, err := json.Marshal(transformed)
	if err != nil {
		return nil, fmt.Errorf("project: re-encode import: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(canonical, &env); err != nil {
		return nil, fmt.Errorf("project: decode envelope: %w", err)
	}
	if err := i.validate.Struct(&env); err != nil {
		return nil, fmt.Errorf("project: invalid envelope: %w", err)
	}

	p := env.Project
	name, err := i.freeName(p.Name)
	if err != nil {
		return nil, err
	}
	p.Name = name

	// Imported content always gets fresh record ids; envelope ids may
	// collide with records already in this store.
	clearIDs(&p)
	p.CreatedAt = time.Time{}
	if err := i.service.Save(&p); err != nil {
		return nil, err
	}

	i.logger.Info("imported project", "id", p.ID, "name", p.Name,
		"migration_version", env.MigrationVersion)
	return &p, nil
}

// freeName returns name, or the first "name (N)" variant no stored
// project uses yet.
func (i *Importer) freeName(name string) (string, error) {
	exists, err := i.service.NameExists(name)
	if err != nil {
		return "", err
	}
	if !exists {
		return name, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		exists, err := i.service.NameExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			i.logger.Info("import name collision", "name", name, "renamed", candidate)
			return candidate, nil
		}
	}
}

func clearIDs(p *Project) {
	p.ID = ""
	for i := range p.Sentences {
		sent := &p.Sentences[i]
		sent.ID = ""
		for j := range sent.Tokens {
			tok := &sent.Tokens[j]
			tok.ID = ""
			for k := range tok.Annotations {
				tok.Annotations[k].ID = ""
			}
		}
		for j := range sent.Notes {
			sent.Notes[j].ID = ""
		}
	}
}
