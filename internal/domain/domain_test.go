/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import "testing"

func TestDefaults(t *testing.T) {
	if got := Default(Participant); len(got) != 1 || got[0] != "1girl" {
		t.Fatalf("Default(participant) = %v", got)
	}
	if got := Default(Quality); len(got) != 6 || got[5] != "very awa" {
		t.Fatalf("Default(quality) = %v", got)
	}
	if got := Default(DefaultNegative); len(got) != 16 || got[0] != "worst quality" || got[15] != "semi-anthro" {
		t.Fatalf("Default(defaultNegative) = %v", got)
	}
	for _, c := range []Collection{Character, Artist, General, AdditionalNegative} {
		if got := Default(c); got == nil || len(got) != 0 {
			t.Fatalf("Default(%s) = %#v, want empty non-nil", c, got)
		}
	}
	// mutation of a returned default must not leak
	q := Default(Quality)
	q[0] = "changed"
	if Default(Quality)[0] != "masterpiece" {
		t.Fatalf("Default returned shared storage")
	}
}

func TestKeys(t *testing.T) {
	if got, want := Quality.StorageKey(), "qualityTags"; got != want {
		t.Fatalf("StorageKey = %q, want %q", got, want)
	}
	if got, want := Character.ToggleKey(), "characterRandomToggle"; got != want {
		t.Fatalf("ToggleKey = %q, want %q", got, want)
	}
	if got, want := General.RemoteField(), "danbooru"; got != want {
		t.Fatalf("RemoteField = %q, want %q", got, want)
	}
	if !Artist.Randomizable() || Quality.Randomizable() {
		t.Fatalf("Randomizable mismatch")
	}
}

func TestParseCollection(t *testing.T) {
	if c, ok := ParseCollection(" defaultnegative "); !ok || c != DefaultNegative {
		t.Fatalf("ParseCollection = %q,%v", c, ok)
	}
	if _, ok := ParseCollection("nope"); ok {
		t.Fatalf("ParseCollection accepted unknown name")
	}
}

func TestTitleFromIdentifier(t *testing.T) {
	tests := []struct {
		in, title, file string
	}{
		{"ganyu_wlop_0.png", "ganyu_wlop_0", "ganyu_wlop_0.png"},
		{"output/dir/ganyu_wlop_1.png", "ganyu_wlop_1", "ganyu_wlop_1.png"},
		{`C:\out\x_y_2.png`, "x_y_2", "x_y_2.png"},
		{"plain_title", "plain_title", "plain_title.png"},
		{"a.b.c", "a", "a.b.c"},
	}
	for _, tt := range tests {
		if got := TitleFromIdentifier(tt.in); got != tt.title {
			t.Fatalf("TitleFromIdentifier(%q) = %q, want %q", tt.in, got, tt.title)
		}
		if got := FileName(tt.in); got != tt.file {
			t.Fatalf("FileName(%q) = %q, want %q", tt.in, got, tt.file)
		}
	}
}
