/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package recipe parses plain-text tag recipes into collections.
//
// Supported syntax:
//   - Section headings: "# artist" or "artist:" start a collection section.
//     The name is any collection name, case-insensitive.
//   - Inline form: "quality: masterpiece, best quality" sets tags right on the
//     heading line. Commas separate tags, except in the character section where
//     the whole remainder is one tag ("ganyu, genshin impact").
//   - Tag lines: every other non-empty line inside a section is one tag.
//   - "@random" inside character or artist turns the random toggle on.
//   - Lines starting with ';' are comments.
package recipe

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"promptstudio/internal/domain"
)

// Recipe is the parsed content. Order lists the collections in the order
// they first appeared.
type Recipe struct {
	Tags   map[domain.Collection]domain.TagCollection
	Random map[domain.Collection]bool
	Order  []domain.Collection
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

var (
	reHeading = regexp.MustCompile(`^#+\s*(.*)$`)
	reInline  = regexp.MustCompile(`^([A-Za-z]{1,32})\s*:\s*(.*)$`)
)

const randomMarker = "@random"

// Parse reads a recipe. Lines after an unknown heading are skipped until the
// next heading; each problem is reported once.
func Parse(input string) (Recipe, []Error) {
	r := Recipe{
		Tags:   map[domain.Collection]domain.TagCollection{},
		Random: map[domain.Collection]bool{},
	}
	var errs []Error

	var (
		current domain.Collection
		skip    bool
	)
	enter := func(c domain.Collection) {
		current, skip = c, false
		if _, seen := r.Tags[c]; !seen {
			r.Tags[c] = domain.TagCollection{}
			r.Order = append(r.Order, c)
		}
	}
	add := func(lineNo int, tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if strings.EqualFold(tag, randomMarker) {
			if !current.Randomizable() {
				errs = append(errs, Error{Line: lineNo, Message: fmt.Sprintf("%s cannot be randomized", current)})
				return
			}
			r.Random[current] = true
			return
		}
		r.Tags[current] = append(r.Tags[current], tag)
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trim := strings.TrimSpace(scanner.Text())
		if trim == "" || strings.HasPrefix(trim, ";") {
			continue
		}

		if m := reHeading.FindStringSubmatch(trim); m != nil {
			c, ok := domain.ParseCollection(m[1])
			if !ok {
				errs = append(errs, Error{Line: lineNo, Message: fmt.Sprintf("unknown collection %q", strings.TrimSpace(m[1]))})
				skip = true
				continue
			}
			enter(c)
			continue
		}

		if m := reInline.FindStringSubmatch(trim); m != nil {
			if c, ok := domain.ParseCollection(m[1]); ok {
				enter(c)
				rest := strings.TrimSpace(m[2])
				if c == domain.Character {
					add(lineNo, rest)
					continue
				}
				for _, t := range strings.Split(rest, ",") {
					add(lineNo, t)
				}
				continue
			}
		}

		if skip {
			continue
		}
		if current == "" {
			errs = append(errs, Error{Line: lineNo, Message: "tag outside of a section"})
			continue
		}
		add(lineNo, trim)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Message: err.Error()})
	}
	return r, errs
}
