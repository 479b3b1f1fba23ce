/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package domain holds the shared data model: tag collections, prompt clips,
// gallery images and the error conditions every component reports.
package domain

import (
	"errors"
	"path"
	"strings"
)

// Error conditions. Callers test them with errors.Is.
var (
	// ErrRemoteUnavailable covers network failure, non-2xx status and malformed responses.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrPersistedStateCorrupt marks a stored value that does not parse; it is always recovered locally.
	ErrPersistedStateCorrupt = errors.New("persisted state corrupt")
	// ErrNoResults is a generation that succeeded but produced no artifacts.
	ErrNoResults = errors.New("no results")
)

// Collection names one ordered tag sequence.
type Collection string

const (
	Participant        Collection = "participant"
	Character          Collection = "character"
	Artist             Collection = "artist"
	General            Collection = "general"
	Quality            Collection = "quality"
	DefaultNegative    Collection = "defaultNegative"
	AdditionalNegative Collection = "additionalNegative"
)

// Collections lists every collection in positive-then-negative composition order.
var Collections = []Collection{Participant, Character, Artist, General, Quality, DefaultNegative, AdditionalNegative}

// PositiveOrder and NegativeOrder fix how collections are concatenated into clips.
var (
	PositiveOrder = []Collection{Participant, Character, Artist, General, Quality}
	NegativeOrder = []Collection{DefaultNegative, AdditionalNegative}
)

// RandomFields are the collections that may be replaced by a remotely chosen tag.
var RandomFields = []Collection{Character, Artist}

// ParseCollection accepts the canonical name, case-insensitively.
func ParseCollection(s string) (Collection, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Collections {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Randomizable reports whether c has a randomization toggle.
func (c Collection) Randomizable() bool {
	for _, f := range RandomFields {
		if f == c {
			return true
		}
	}
	return false
}

// StorageKey is the persisted key of the collection, e.g. "qualityTags".
func (c Collection) StorageKey() string { return string(c) + "Tags" }

// ToggleKey is the persisted key of the randomization toggle, e.g. "characterRandomToggle".
func (c Collection) ToggleKey() string { return string(c) + "RandomToggle" }

// RemoteField is the backend's name for the tag table behind c.
// General tags are served from the "danbooru" table.
func (c Collection) RemoteField() string {
	if c == General {
		return "danbooru"
	}
	return string(c)
}

// TagCollection is an ordered tag list; order is significant and duplicates are allowed.
type TagCollection []string

// Clone returns an independent copy; nil stays nil.
func (tc TagCollection) Clone() TagCollection {
	if tc == nil {
		return nil
	}
	out := make(TagCollection, len(tc))
	copy(out, tc)
	return out
}

var defaults = map[Collection]TagCollection{
	Participant: {"1girl"},
	Character:   {},
	Artist:      {},
	General:     {},
	Quality:     {"masterpiece", "best quality", "newest", "absurdres", "highres", "very awa"},
	DefaultNegative: {
		"worst quality", "old", "early", "low quality", "lowres", "signature", "username", "logo",
		"bad hands", "mutated hands", "mammal", "anthro", "furry", "ambiguous form", "feral", "semi-anthro",
	},
	AdditionalNegative: {},
}

// Default returns a fresh copy of the static default for c.
func Default(c Collection) TagCollection {
	d, ok := defaults[c]
	if !ok {
		return TagCollection{}
	}
	out := make(TagCollection, len(d))
	copy(out, d)
	return out
}

// Clip is the pair of prompt strings derived from the collections.
type Clip struct {
	Positive string `json:"positive_clip"`
	Negative string `json:"negative_clip"`
}

// GenerationRequest is the body submitted to the generation endpoint.
type GenerationRequest struct {
	PositiveClip  string   `json:"positive_clip"`
	NegativeClip  string   `json:"negative_clip"`
	CharacterTags []string `json:"character_tags"`
	ArtistTags    []string `json:"artist_tags"`
}

// GalleryImage is one displayable artifact. ID is the display position and is
// reassigned on every full reload; Title is the stable identity.
type GalleryImage struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

// BaseName strips any directory portion, accepting both slash styles.
func BaseName(identifier string) string {
	s := strings.TrimSpace(identifier)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// TitleFromIdentifier derives an image title from a backend identifier:
// directory and extension are removed ("out/a_b_0.png" -> "a_b_0").
func TitleFromIdentifier(identifier string) string {
	base := BaseName(identifier)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// FileName returns the on-server file name for an identifier, adding ".png"
// when the identifier carries no extension.
func FileName(identifier string) string {
	base := BaseName(identifier)
	if path.Ext(base) == "" {
		return base + ".png"
	}
	return base
}
