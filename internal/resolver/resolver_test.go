/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package resolver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptstudio/internal/backend"
	"promptstudio/internal/domain"
)

type stubSource struct {
	tag    backend.TagCount
	err    error
	fields []string
}

func (s *stubSource) RandomTag(_ context.Context, field string) (backend.TagCount, error) {
	s.fields = append(s.fields, field)
	return s.tag, s.err
}

func TestResolveReturnsTag(t *testing.T) {
	src := &stubSource{tag: backend.TagCount{Tag: " wlop "}}
	got, err := New(src).Resolve(context.Background(), domain.Artist)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "wlop" {
		t.Fatalf("Resolve = %q, want %q", got, "wlop")
	}
	if len(src.fields) != 1 || src.fields[0] != "artist" {
		t.Fatalf("remote calls = %v, want [artist]", src.fields)
	}
}

func TestResolveFailures(t *testing.T) {
	cases := map[string]*stubSource{
		"blank":     {tag: backend.TagCount{Tag: "   "}},
		"transport": {err: errors.New("dial tcp: refused")},
		"wrapped":   {err: domain.ErrRemoteUnavailable},
	}
	for name, src := range cases {
		if _, err := New(src).Resolve(context.Background(), domain.Character); !errors.Is(err, domain.ErrRemoteUnavailable) {
			t.Fatalf("%s: err = %v, want ErrRemoteUnavailable", name, err)
		}
	}
}

func TestResolveRejectsNonRandomField(t *testing.T) {
	src := &stubSource{tag: backend.TagCount{Tag: "x"}}
	if _, err := New(src).Resolve(context.Background(), domain.Quality); err == nil {
		t.Fatalf("expected error for quality")
	}
	if len(src.fields) != 0 {
		t.Fatalf("no remote call expected, got %v", src.fields)
	}
}

func TestResolveAgainstHTTPBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags/character/random" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"tag":{"tag":"ganyu_(genshin_impact)","count":10}}`)
	}))
	defer srv.Close()
	got, err := New(backend.NewClient(srv.URL, "")).Resolve(context.Background(), domain.Character)
	if err != nil || got != "ganyu_(genshin_impact)" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}
