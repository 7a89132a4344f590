// Copyright (C) 2026 the wordhord authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wordhord/wordhord/store"
)

// ErrProjectNotFound indicates no project exists under the given id.
var ErrProjectNotFound = errors.New("project: not found")

// Entity names as they appear in store keys and migration scripts.
const (
	EntityProject    = "project"
	EntitySentence   = "sentence"
	EntityToken      = "token"
	EntityAnnotation = "annotation"
	EntityNote       = "note"
)

// Service is the store binding for projects. Nested documents are
// decomposed into one record per entity, with ordered child id lists on
// the parent, so migration scripts can rewrite each entity type
// independently.
type Service struct {
	st     *store.Store
	logger *slog.Logger
}

// NewService creates a project service over the given store. A nil
// logger disables diagnostics.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{st: st, logger: logger}
}

// toDoc flattens a typed value into the store's map shape.
func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// fromDoc rebuilds a typed value from the store's map shape.
func fromDoc(doc map[string]any, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func childIDs(doc map[string]any, key string) []string {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids
}

// Save persists a project, assigning ids where missing and replacing
// any previously stored content under the same project id.
func (s *Service) Save(p *Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	// Drop the previous decomposition first so removed children do not
	// linger as orphan records.
	if err := s.deleteChildren(p.ID); err != nil {
		return err
	}

	sentenceIDs := make([]string, len(p.Sentences))
	for i := range p.Sentences {
		sent := &p.Sentences[i]
		if sent.ID == "" {
			sent.ID = uuid.NewString()
		}
		sentenceIDs[i] = sent.ID

		tokenIDs := make([]string, len(sent.Tokens))
		for j := range sent.Tokens {
			tok := &sent.Tokens[j]
			if tok.ID == "" {
				tok.ID = uuid.NewString()
			}
			tokenIDs[j] = tok.ID

			annotationIDs := make([]string, len(tok.Annotations))
			for k := range tok.Annotations {
				ann := &tok.Annotations[k]
				if ann.ID == "" {
					ann.ID = uuid.NewString()
				}
				annotationIDs[k] = ann.ID

				doc, err := toDoc(ann)
				if err != nil {
					return fmt.Errorf("project: encode annotation: %w", err)
				}
				doc["token_id"] = tok.ID
				if err := s.st.PutRecord(EntityAnnotation, ann.ID, doc); err != nil {
					return err
				}
			}

			doc, err := toDoc(tok)
			if err != nil {
				return fmt.Errorf("project: encode token: %w", err)
			}
			delete(doc, "annotations")
			doc["sentence_id"] = sent.ID
			doc["annotation_ids"] = annotationIDs
			if err := s.st.PutRecord(EntityToken, tok.ID, doc); err != nil {
				return err
			}
		}

		noteIDs := make([]string, len(sent.Notes))
		for j := range sent.Notes {
			note := &sent.Notes[j]
			if note.ID == "" {
				note.ID = uuid.NewString()
			}
			noteIDs[j] = note.ID

			doc, err := toDoc(note)
			if err != nil {
				return fmt.Errorf("project: encode note: %w", err)
			}
			doc["sentence_id"] = sent.ID
			if err := s.st.PutRecord(EntityNote, note.ID, doc); err != nil {
				return err
			}
		}

		doc, err := toDoc(sent)
		if err != nil {
			return fmt.Errorf("project: encode sentence: %w", err)
		}
		delete(doc, "tokens")
		delete(doc, "notes")
		doc["project_id"] = p.ID
		doc["token_ids"] = tokenIDs
		doc["note_ids"] = noteIDs
		if err := s.st.PutRecord(EntitySentence, sent.ID, doc); err != nil {
			return err
		}
	}

	doc, err := toDoc(p)
	if err != nil {
		return fmt.Errorf("project: encode project: %w", err)
	}
	delete(doc, "sentences")
	doc["sentence_ids"] = sentenceIDs
	if err := s.st.PutRecord(EntityProject, p.ID, doc); err != nil {
		return err
	}

	s.logger.Info("saved project", "id", p.ID, "name", p.Name, "sentences", len(p.Sentences))
	return nil
}

// Load rebuilds a full project from its decomposed records.
func (s *Service) Load(id string) (*Project, error) {
	doc, err := s.st.GetRecord(EntityProject, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var p Project
	if err := fromDoc(doc, &p); err != nil {
		return nil, fmt.Errorf("project: decode project %s: %w", id, err)
	}

	for _, sentID := range childIDs(doc, "sentence_ids") {
		sentDoc, err := s.st.GetRecord(EntitySentence, sentID)
		if err != nil {
			return nil, fmt.Errorf("project: load sentence %s: %w", sentID, err)
		}
		var sent Sentence
		if err := fromDoc(sentDoc, &sent); err != nil {
			return nil, fmt.Errorf("project: decode sentence %s: %w", sentID, err)
		}

		for _, tokID := range childIDs(sentDoc, "token_ids") {
			tokDoc, err := s.st.GetRecord(EntityToken, tokID)
			if err != nil {
				return nil, fmt.Errorf("project: load token %s: %w", tokID, err)
			}
			var tok Token
			if err := fromDoc(tokDoc, &tok); err != nil {
				return nil, fmt.Errorf("project: decode token %s: %w", tokID, err)
			}

			for _, annID := range childIDs(tokDoc, "annotation_ids") {
				annDoc, err := s.st.GetRecord(EntityAnnotation, annID)
				if err != nil {
					return nil, fmt.Errorf("project: load annotation %s: %w", annID, err)
				}
				var ann Annotation
				if err := fromDoc(annDoc, &ann); err != nil {
					return nil, fmt.Errorf("project: decode annotation %s: %w", annID, err)
				}
				tok.Annotations = append(tok.Annotations, ann)
			}
			sent.Tokens = append(sent.Tokens, tok)
		}

		for _, noteID := range childIDs(sentDoc, "note_ids") {
			noteDoc, err := s.st.GetRecord(EntityNote, noteID)
			if err != nil {
				return nil, fmt.Errorf("project: load note %s: %w", noteID, err)
			}
			var note Note
			if err := fromDoc(noteDoc, &note); err != nil {
				return nil, fmt.Errorf("project: decode note %s: %w", noteID, err)
			}
			sent.Notes = append(sent.Notes, note)
		}
		p.Sentences = append(p.Sentences, sent)
	}
	return &p, nil
}

// List returns a summary of every stored project.
func (s *Service) List() ([]Summary, error) {
	ids, err := s.st.ListIDs(EntityProject)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		doc, err := s.st.GetRecord(EntityProject, id)
		if err != nil {
			return nil, err
		}
		var sum Summary
		if err := fromDoc(doc, &sum); err != nil {
			return nil, fmt.Errorf("project: decode project %s: %w", id, err)
		}
		sum.Sentences = len(childIDs(doc, "sentence_ids"))
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Delete removes a project and all of its child records.
func (s *Service) Delete(id string) error {
	if _, err := s.st.GetRecord(EntityProject, id); errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	} else if err != nil {
		return err
	}
	if err := s.deleteChildren(id); err != nil {
		return err
	}
	if err := s.st.DeleteRecord(EntityProject, id); err != nil {
		return err
	}
	s.logger.Info("deleted project", "id", id)
	return nil
}

// NameExists reports whether any stored project carries the given name.
func (s *Service) NameExists(name string) (bool, error) {
	summaries, err := s.List()
	if err != nil {
		return false, err
	}
	for _, sum := range summaries {
		if sum.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// deleteChildren removes the decomposed child records of a project, if
// any are stored.
func (s *Service) deleteChildren(projectID string) error {
	doc, err := s.st.GetRecord(EntityProject, projectID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, sentID := range childIDs(doc, "sentence_ids") {
		sentDoc, err := s.st.GetRecord(EntitySentence, sentID)
		if errors.Is(err, store.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		for _, tokID := range childIDs(sentDoc, "token_ids") {
			tokDoc, err := s.st.GetRecord(EntityToken, tokID)
			if err == nil {
				for _, annID := range childIDs(tokDoc, "annotation_ids") {
					if err := s.st.DeleteRecord(EntityAnnotation, annID); err != nil {
						return err
					}
				}
			} else if !errors.Is(err, store.ErrRecordNotFound) {
				return err
			}
			if err := s.st.DeleteRecord(EntityToken, tokID); err != nil {
				return err
			}
		}
		for _, noteID := range childIDs(sentDoc, "note_ids") {
			if err := s.st.DeleteRecord(EntityNote, noteID); err != nil {
				return err
			}
		}
		if err := s.st.DeleteRecord(EntitySentence, sentID); err != nil {
			return err
		}
	}
	return nil
}
