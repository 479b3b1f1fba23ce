/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package recipe

import (
	"reflect"
	"strings"
	"testing"

	"promptstudio/internal/domain"
)

func TestParseSectionsAndInline(t *testing.T) {
	input := `; evening portrait
# Character
ganyu, genshin impact
@random

artist: wlop, ask (askzy)
quality: masterpiece, best quality

# general
long hair
score: 9`

	r, errs := Parse(input)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	wantOrder := []domain.Collection{domain.Character, domain.Artist, domain.Quality, domain.General}
	if !reflect.DeepEqual(r.Order, wantOrder) {
		t.Fatalf("order = %v, want %v", r.Order, wantOrder)
	}
	if got := r.Tags[domain.Character]; len(got) != 1 || got[0] != "ganyu, genshin impact" {
		t.Fatalf("character = %q", got)
	}
	if !r.Random[domain.Character] || r.Random[domain.Artist] {
		t.Fatalf("random = %v", r.Random)
	}
	if got := strings.Join(r.Tags[domain.Artist], "|"); got != "wlop|ask (askzy)" {
		t.Fatalf("artist = %q", got)
	}
	// "score" is not a collection, so the line is a tag of the open section
	if got := strings.Join(r.Tags[domain.General], "|"); got != "long hair|score: 9" {
		t.Fatalf("general = %q", got)
	}
}

func TestParseInlineCharacterKeepsComma(t *testing.T) {
	r, errs := Parse("character: keqing, genshin impact")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if got := r.Tags[domain.Character]; len(got) != 1 || got[0] != "keqing, genshin impact" {
		t.Fatalf("character = %q", got)
	}
}

func TestParseEmptySectionClears(t *testing.T) {
	r, errs := Parse("# additionalNegative\n")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	got, ok := r.Tags[domain.AdditionalNegative]
	if !ok || len(got) != 0 {
		t.Fatalf("additionalNegative = %v present=%v", got, ok)
	}
}

func TestParseErrors(t *testing.T) {
	input := `stray tag
# mood
happy
# quality
@random
best quality`

	r, errs := Parse(input)
	if len(errs) != 3 {
		t.Fatalf("errors = %+v, want 3", errs)
	}
	if errs[0].Line != 1 || errs[1].Line != 2 || errs[2].Line != 5 {
		t.Fatalf("error lines = %+v", errs)
	}
	if !strings.Contains(errs[1].Error(), `unknown collection "mood"`) {
		t.Fatalf("error text = %q", errs[1].Error())
	}
	if got := r.Tags[domain.Quality]; len(got) != 1 || got[0] != "best quality" {
		t.Fatalf("quality = %q", got)
	}
}
