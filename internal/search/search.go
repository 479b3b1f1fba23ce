/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package search filters the gallery by character and artist tags through the
// backend's image listing.
package search

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"promptstudio/internal/backend"
	"promptstudio/internal/domain"
	"promptstudio/internal/gallery"
	applog "promptstudio/internal/log"
)

// MaxTagLen caps a sanitized tag, in characters.
const MaxTagLen = 255

// ErrEmptyQuery means neither character nor artist tags survived sanitizing.
var ErrEmptyQuery = errors.New("empty search query")

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Sanitize replaces characters that are unsafe in file names with '_' and caps the length.
func Sanitize(tag string) string {
	s := unsafeChars.ReplaceAllString(tag, "_")
	if r := []rune(s); len(r) > MaxTagLen {
		s = string(r[:MaxTagLen])
	}
	return s
}

// SanitizeCharacter keeps only the part of a character tag before the first
// comma ("Ganyu (Genshin Impact), Genshin" -> "Ganyu (Genshin Impact)").
func SanitizeCharacter(tag string) string {
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	return Sanitize(strings.TrimSpace(tag))
}

// BuildQuery sanitizes both lists and joins each with spaces. Blank tags are dropped.
func BuildQuery(character, artist []string) backend.ImageQuery {
	return backend.ImageQuery{
		Character: joinSanitized(character, SanitizeCharacter),
		Artist:    joinSanitized(artist, Sanitize),
	}
}

func joinSanitized(tags []string, fn func(string) string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if s := strings.TrimSpace(fn(t)); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

// Lister is the remote listing endpoint.
type Lister interface {
	ListImages(ctx context.Context, q backend.ImageQuery) ([]backend.ImageEntry, error)
}

// Filter remembers the last searched tags and drives the gallery's filter view.
type Filter struct {
	remote  Lister
	gallery *gallery.Store
	log     *slog.Logger

	mu        sync.Mutex
	character []string
	artist    []string
}

func New(remote Lister, g *gallery.Store) *Filter {
	return &Filter{remote: remote, gallery: g, log: applog.WithComponent("search")}
}

// Search issues one filtered listing and returns the matching images with ids
// 0..N-1. When both lists are empty after sanitizing no request is made and
// ErrEmptyQuery is returned.
func (f *Filter) Search(ctx context.Context, character, artist []string) ([]domain.GalleryImage, error) {
	f.mu.Lock()
	f.character = append([]string(nil), character...)
	f.artist = append([]string(nil), artist...)
	f.mu.Unlock()

	q := BuildQuery(character, artist)
	if q.Character == "" && q.Artist == "" {
		return nil, ErrEmptyQuery
	}
	entries, err := f.remote.ListImages(ctx, q)
	if err != nil {
		f.log.ErrorContext(ctx, "search failed", slog.String("character", q.Character), slog.String("artist", q.Artist), slog.Any("err", err))
		return nil, err
	}
	links := f.gallery.Links()
	out := make([]domain.GalleryImage, len(entries))
	for i, e := range entries {
		out[i] = links.FromEntry(e, i, 0)
	}
	f.log.DebugContext(ctx, "search", slog.String("character", q.Character), slog.String("artist", q.Artist), slog.Int("hits", len(out)))
	return out, nil
}

// Apply searches and pushes the result into the gallery's filter view. An
// empty query clears the filter instead; a failed search leaves the gallery as is.
func (f *Filter) Apply(ctx context.Context, character, artist []string) ([]domain.GalleryImage, error) {
	res, err := f.Search(ctx, character, artist)
	if errors.Is(err, ErrEmptyQuery) {
		f.gallery.ClearFilter()
		return f.gallery.Visible(), nil
	}
	if err != nil {
		return nil, err
	}
	f.gallery.SetFiltered(res)
	return res, nil
}

// Reset forgets the searched tags and shows the unfiltered gallery.
func (f *Filter) Reset() {
	f.mu.Lock()
	f.character = nil
	f.artist = nil
	f.mu.Unlock()
	f.gallery.ClearFilter()
}

// Tags returns the last searched character and artist tags.
func (f *Filter) Tags() (character, artist []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.character...), append([]string(nil), f.artist...)
}
