/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package gallery keeps the ordered list of displayable images and an optional
// filtered view of it. The server's image list is authoritative: a full reload
// replaces everything, and deletions are always followed by one.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"promptstudio/internal/backend"
	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
)

var ErrNotFound = errors.New("image not found")

// Remote is the part of the backend the gallery needs.
type Remote interface {
	ListImages(ctx context.Context, q backend.ImageQuery) ([]backend.ImageEntry, error)
	DeleteImage(ctx context.Context, filename string) error
}

// Store is safe for concurrent use. Between a reload and an append the last
// writer wins.
type Store struct {
	remote Remote
	links  Links
	log    *slog.Logger

	mu       sync.RWMutex
	all      []domain.GalleryImage
	filtered []domain.GalleryImage
	filterOn bool
}

func New(remote Remote, links Links) *Store {
	return &Store{remote: remote, links: links, log: applog.WithComponent("gallery")}
}

// Links returns the URL mapping used by the store.
func (s *Store) Links() Links { return s.links }

// Reload replaces the full list with the server's, assigns ids 0..N-1 and
// clears any filter. On failure the current state is kept.
func (s *Store) Reload(ctx context.Context) error {
	l := applog.WithOperation(s.log, "reload")
	entries, err := s.remote.ListImages(ctx, backend.ImageQuery{})
	if err != nil {
		l.ErrorContext(ctx, "list images failed", slog.Any("err", err))
		return err
	}
	v := s.links.stamp()
	imgs := make([]domain.GalleryImage, len(entries))
	for i, e := range entries {
		imgs[i] = s.links.FromEntry(e, i, v)
	}
	s.mu.Lock()
	s.all = imgs
	s.filtered = nil
	s.filterOn = false
	s.mu.Unlock()
	l.DebugContext(ctx, "reloaded", slog.Int("count", len(imgs)))
	return nil
}

// Append adds images to the end of the full list. Their ids continue from the
// current length. An active filter view is not touched.
func (s *Store) Append(images ...domain.GalleryImage) []domain.GalleryImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GalleryImage, len(images))
	for i, img := range images {
		img.ID = len(s.all)
		s.all = append(s.all, img)
		out[i] = img
	}
	return out
}

// AppendIdentifiers derives images from generation identifiers, in order, and appends them.
func (s *Store) AppendIdentifiers(ids ...string) []domain.GalleryImage {
	v := s.links.stamp()
	imgs := make([]domain.GalleryImage, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		imgs = append(imgs, s.links.FromIdentifier(id, 0, v))
	}
	return s.Append(imgs...)
}

// SetFiltered replaces the visible list with subset. An empty subset means
// "no results", which is distinct from having no filter.
func (s *Store) SetFiltered(subset []domain.GalleryImage) {
	cp := make([]domain.GalleryImage, len(subset))
	copy(cp, subset)
	s.mu.Lock()
	s.filtered = cp
	s.filterOn = true
	s.mu.Unlock()
}

// ClearFilter returns to the unfiltered view.
func (s *Store) ClearFilter() {
	s.mu.Lock()
	s.filtered = nil
	s.filterOn = false
	s.mu.Unlock()
}

// Remove deletes img on the server, then reloads. A failed delete leaves
// every list unchanged.
func (s *Store) Remove(ctx context.Context, img domain.GalleryImage) error {
	l := applog.WithOperation(s.log, "remove")
	title := strings.TrimSpace(img.Title)
	if title == "" {
		return fmt.Errorf("gallery: %w: empty title", ErrNotFound)
	}
	file := domain.FileName(title)
	if err := s.remote.DeleteImage(ctx, file); err != nil {
		l.ErrorContext(ctx, "delete failed", slog.String("title", title), slog.Any("err", err))
		return err
	}
	l.InfoContext(ctx, "deleted", slog.String("file", file))
	return s.Reload(ctx)
}

// RemoveTitle removes the image known under title.
func (s *Store) RemoveTitle(ctx context.Context, title string) error {
	img, ok := s.Find(title)
	if !ok {
		return fmt.Errorf("gallery: %w: %q", ErrNotFound, title)
	}
	return s.Remove(ctx, img)
}

// Visible returns the filtered view when a filter is active, else the full list.
func (s *Store) Visible() []domain.GalleryImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filterOn {
		return clone(s.filtered)
	}
	return clone(s.all)
}

// All returns the full list.
func (s *Store) All() []domain.GalleryImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.all)
}

// Filtered reports whether a filter view is active.
func (s *Store) Filtered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterOn
}

// Find looks an image up by title in the full list, then in the filtered view.
func (s *Store) Find(title string) (domain.GalleryImage, bool) {
	title = strings.TrimSpace(title)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range [][]domain.GalleryImage{s.all, s.filtered} {
		for _, img := range list {
			if img.Title == title {
				return img, true
			}
		}
	}
	return domain.GalleryImage{}, false
}

func clone(in []domain.GalleryImage) []domain.GalleryImage {
	out := make([]domain.GalleryImage, len(in))
	copy(out, in)
	return out
}
