/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tags owns the named tag collections and randomization toggles.
// It is the only reader and writer of their persisted state: values are hydrated
// once from the durable store, and every mutation is committed before the
// in-memory copy changes.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
	"promptstudio/internal/storage"
	"promptstudio/internal/undo"
)

var (
	ErrUnknownCollection = errors.New("unknown tag collection")
	ErrNotRandomizable   = errors.New("collection has no randomization toggle")
)

// Snapshot is one consistent copy of every collection and toggle.
type Snapshot struct {
	Tags    map[domain.Collection]domain.TagCollection `json:"tags"`
	Toggles map[domain.Collection]bool                 `json:"toggles"`
}

// Get returns the collection, or an empty one when absent.
func (s Snapshot) Get(c domain.Collection) domain.TagCollection {
	if tc, ok := s.Tags[c]; ok {
		return tc
	}
	return domain.TagCollection{}
}

// Toggle reports the toggle for field.
func (s Snapshot) Toggle(field domain.Collection) bool { return s.Toggles[field] }

// Options tune the edit history.
type Options struct {
	History undo.Config
}

// Store is safe for concurrent use.
type Store struct {
	kv      storage.Store
	log     *slog.Logger
	hist    *undo.History
	mu      sync.RWMutex
	tags    map[domain.Collection]domain.TagCollection
	toggles map[domain.Collection]bool
}

// Open hydrates a Store from kv. Missing or corrupt values fall back to the static
// defaults; read failures of the backend are logged and treated the same way.
func Open(ctx context.Context, kv storage.Store, opts Options) (*Store, error) {
	if kv == nil {
		return nil, errors.New("tags: storage is required")
	}
	if opts.History.MaxPerKey == 0 {
		opts.History.MaxPerKey = 50
	}
	s := &Store{
		kv:      kv,
		log:     applog.WithComponent("tags"),
		hist:    undo.New(opts.History),
		tags:    make(map[domain.Collection]domain.TagCollection, len(domain.Collections)),
		toggles: make(map[domain.Collection]bool, len(domain.RandomFields)),
	}
	s.hydrate(ctx)
	return s, nil
}

func (s *Store) hydrate(ctx context.Context) {
	l := applog.WithOperation(s.log, "hydrate")
	for _, c := range domain.Collections {
		s.tags[c] = domain.Default(c)
		raw, ok, err := s.kv.Get(ctx, c.StorageKey())
		if err != nil {
			l.WarnContext(ctx, "read failed, using default", slog.String("key", c.StorageKey()), slog.Any("err", err))
			continue
		}
		if !ok {
			continue
		}
		tc, err := decodeTags(raw)
		if err != nil {
			l.DebugContext(ctx, "ignoring persisted value", slog.String("key", c.StorageKey()), slog.Any("err", err))
			continue
		}
		s.tags[c] = tc
	}
	for _, f := range domain.RandomFields {
		s.toggles[f] = false
		raw, ok, err := s.kv.Get(ctx, f.ToggleKey())
		if err != nil || !ok {
			continue
		}
		on, err := decodeToggle(raw)
		if err != nil {
			l.DebugContext(ctx, "ignoring persisted value", slog.String("key", f.ToggleKey()), slog.Any("err", err))
			continue
		}
		s.toggles[f] = on
	}
}

func known(c domain.Collection) bool {
	for _, k := range domain.Collections {
		if k == c {
			return true
		}
	}
	return false
}

// Get returns a copy of the named collection.
func (s *Store) Get(name domain.Collection) (domain.TagCollection, error) {
	if !known(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags[name].Clone(), nil
}

// Set replaces the collection and persists it. The value is stored as given.
func (s *Store) Set(ctx context.Context, name domain.Collection, tc domain.TagCollection) error {
	if !known(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	next := tc.Clone()
	if next == nil {
		next = domain.TagCollection{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.tags[name]
	if err := s.kv.Put(ctx, name.StorageKey(), encodeTags(next)); err != nil {
		return fmt.Errorf("persist %s: %w", name, err)
	}
	s.hist.Record(string(name), []byte(encodeTags(prev)), time.Now())
	s.tags[name] = next
	return nil
}

// Add appends tags to the collection, skipping blank input.
func (s *Store) Add(ctx context.Context, name domain.Collection, tags ...string) error {
	cur, err := s.Get(name)
	if err != nil {
		return err
	}
	return s.Set(ctx, name, append(cur, normalize(tags)...))
}

// Remove deletes every occurrence of tag from the collection.
func (s *Store) Remove(ctx context.Context, name domain.Collection, tag string) error {
	cur, err := s.Get(name)
	if err != nil {
		return err
	}
	out := make(domain.TagCollection, 0, len(cur))
	for _, t := range cur {
		if t != strings.TrimSpace(tag) {
			out = append(out, t)
		}
	}
	return s.Set(ctx, name, out)
}

// Toggle reports whether randomization is enabled for field.
func (s *Store) Toggle(field domain.Collection) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toggles[field]
}

// SetToggle persists the randomization toggle for field.
func (s *Store) SetToggle(ctx context.Context, field domain.Collection, on bool) error {
	if !field.Randomizable() {
		return fmt.Errorf("%w: %q", ErrNotRandomizable, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Put(ctx, field.ToggleKey(), encodeToggle(on)); err != nil {
		return fmt.Errorf("persist %s toggle: %w", field, err)
	}
	s.toggles[field] = on
	return nil
}

// Reset restores every collection to its default in one atomic write.
// Toggles are left as they are.
func (s *Store) Reset(ctx context.Context) error {
	entries := make(map[string]string, len(domain.Collections))
	next := make(map[domain.Collection]domain.TagCollection, len(domain.Collections))
	for _, c := range domain.Collections {
		d := domain.Default(c)
		next[c] = d
		entries[c.StorageKey()] = encodeTags(d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.PutMany(ctx, entries); err != nil {
		return fmt.Errorf("persist reset: %w", err)
	}
	ts := time.Now()
	for c, d := range next {
		s.hist.Record(string(c), []byte(encodeTags(s.tags[c])), ts)
		s.tags[c] = d
	}
	return nil
}

// Snapshot returns a consistent deep copy of all collections and toggles.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Tags:    make(map[domain.Collection]domain.TagCollection, len(s.tags)),
		Toggles: make(map[domain.Collection]bool, len(s.toggles)),
	}
	for c, tc := range s.tags {
		snap.Tags[c] = tc.Clone()
	}
	for f, on := range s.toggles {
		snap.Toggles[f] = on
	}
	return snap
}

// Undo restores the value the collection held before its latest edit.
// It reports false when there is nothing to undo.
func (s *Store) Undo(ctx context.Context, name domain.Collection) (domain.TagCollection, bool, error) {
	return s.step(ctx, name, s.hist.Undo, s.hist.Redo)
}

// Redo reapplies the latest undone edit of the collection.
func (s *Store) Redo(ctx context.Context, name domain.Collection) (domain.TagCollection, bool, error) {
	return s.step(ctx, name, s.hist.Redo, s.hist.Undo)
}

type historyStep func(key string, current []byte) (undo.Entry, bool)

func (s *Store) step(ctx context.Context, name domain.Collection, forward, back historyStep) (domain.TagCollection, bool, error) {
	if !known(name) {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := encodeTags(s.tags[name])
	e, ok := forward(string(name), []byte(cur))
	if !ok {
		return s.tags[name].Clone(), false, nil
	}
	tc, err := decodeTags(string(e.Value))
	if err != nil {
		tc = domain.Default(name)
	}
	if err := s.kv.Put(ctx, name.StorageKey(), encodeTags(tc)); err != nil {
		// put the history back the way it was
		back(string(name), e.Value)
		return s.tags[name].Clone(), false, fmt.Errorf("persist %s: %w", name, err)
	}
	s.tags[name] = tc
	return tc.Clone(), true, nil
}

// CanUndo reports the undo and redo depth of the collection.
func (s *Store) CanUndo(name domain.Collection) (undoDepth, redoDepth int) {
	return s.hist.Depth(string(name))
}

func normalize(tc []string) domain.TagCollection {
	out := make(domain.TagCollection, 0, len(tc))
	for _, t := range tc {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
