/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"promptstudio/internal/domain"
	"promptstudio/internal/storage"
)

// Profile is a portable dump of all collections and toggles.
type Profile struct {
	Version     int                                        `json:"version"`
	SavedAt     time.Time                                  `json:"saved_at"`
	Collections map[domain.Collection]domain.TagCollection `json:"collections"`
	Toggles     map[domain.Collection]bool                 `json:"toggles,omitempty"`
}

const profileVersion = 1

var profileSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["version", "collections"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"saved_at": {"type": "string"},
		"collections": {
			"type": "object",
			"additionalProperties": {"type": "array", "items": {"type": "string"}}
		},
		"toggles": {
			"type": "object",
			"additionalProperties": {"type": "boolean"}
		}
	}
}`)

// ExportProfile writes the current state to path, keeping a backup of a previous file.
func (s *Store) ExportProfile(path string) error {
	snap := s.Snapshot()
	p := Profile{Version: profileVersion, SavedAt: time.Now().UTC(), Collections: snap.Tags, Toggles: snap.Toggles}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return storage.WriteFileAtomic(path, append(data, '\n'), true)
}

// ImportProfile replaces the collections named in the profile file (and its toggles)
// in one atomic write. Unknown collection names are rejected.
func (s *Store) ImportProfile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validate(profileSchema, string(data)); err != nil {
		return fmt.Errorf("profile %s: %w", path, err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("profile %s: %w", path, err)
	}
	entries := make(map[string]string, len(p.Collections)+len(p.Toggles))
	for c, tc := range p.Collections {
		if !known(c) {
			return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
		}
		if tc == nil {
			tc = domain.TagCollection{}
		}
		p.Collections[c] = tc
		entries[c.StorageKey()] = encodeTags(tc)
	}
	for f, on := range p.Toggles {
		if !f.Randomizable() {
			return fmt.Errorf("%w: %q", ErrNotRandomizable, f)
		}
		entries[f.ToggleKey()] = encodeToggle(on)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.PutMany(ctx, entries); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	ts := time.Now()
	for c, tc := range p.Collections {
		s.hist.Record(string(c), []byte(encodeTags(s.tags[c])), ts)
		s.tags[c] = tc.Clone()
	}
	for f, on := range p.Toggles {
		s.toggles[f] = on
	}
	return nil
}
