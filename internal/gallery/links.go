/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package gallery

import (
	"strconv"
	"strings"
	"time"

	"promptstudio/internal/backend"
	"promptstudio/internal/domain"
)

// Links maps backend-relative image paths to the URLs shown to a browser and back.
// Prefix is the route prefix the front-end proxies to the backend ("/api").
type Links struct {
	Prefix string
	Now    func() time.Time
}

func (l Links) prefix() string { return strings.TrimRight(strings.TrimSpace(l.Prefix), "/") }

func (l Links) stamp() int64 {
	if l.Now != nil {
		return l.Now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//")
}

// Display prefixes a backend-relative path. With v > 0 a "v" cache-busting
// query parameter is appended.
func (l Links) Display(p string, v int64) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	out := p
	if !isAbsolute(p) {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = l.prefix() + p
	}
	if v > 0 {
		sep := "?"
		if strings.Contains(out, "?") {
			sep = "&"
		}
		out += sep + "v=" + strconv.FormatInt(v, 10)
	}
	return out
}

// BackendPath reverses Display: the query is dropped and the prefix removed.
// Absolute URLs are returned without their query.
func (l Links) BackendPath(display string) string {
	s := strings.TrimSpace(display)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if isAbsolute(s) {
		return s
	}
	if p := l.prefix(); p != "" && strings.HasPrefix(s, p+"/") {
		s = s[len(p):]
	}
	return s
}

// FromEntry converts one listed image. A missing thumbnail falls back to the
// original; a missing title is derived from the original's file name.
func (l Links) FromEntry(e backend.ImageEntry, id int, v int64) domain.GalleryImage {
	orig := l.Display(e.Original, v)
	thumb := orig
	if e.Thumbnail != nil && strings.TrimSpace(*e.Thumbnail) != "" {
		thumb = l.Display(*e.Thumbnail, v)
	}
	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = domain.TitleFromIdentifier(l.BackendPath(e.Original))
	}
	return domain.GalleryImage{ID: id, Title: title, Original: orig, Thumbnail: thumb}
}

// FromIdentifier builds the image for a freshly generated artifact.
func (l Links) FromIdentifier(identifier string, id int, v int64) domain.GalleryImage {
	file := domain.FileName(identifier)
	return domain.GalleryImage{
		ID:        id,
		Title:     domain.TitleFromIdentifier(identifier),
		Original:  l.Display("/images/"+file, v),
		Thumbnail: l.Display("/thumb/"+file, v),
	}
}
