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
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"promptstudio/internal/domain"
	"promptstudio/internal/storage"
)

func openStore(t *testing.T, kv storage.Store) *Store {
	t.Helper()
	s, err := Open(context.Background(), kv, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func mustGet(t *testing.T, s *Store, c domain.Collection) domain.TagCollection {
	t.Helper()
	tc, err := s.Get(c)
	if err != nil {
		t.Fatalf("Get(%s): %v", c, err)
	}
	return tc
}

func TestFreshStoreReturnsDefaults(t *testing.T) {
	s := openStore(t, storage.NewMemory())
	if got := mustGet(t, s, domain.Participant); !reflect.DeepEqual(got, domain.TagCollection{"1girl"}) {
		t.Fatalf("participant = %v, want [1girl]", got)
	}
	if got := mustGet(t, s, domain.Character); len(got) != 0 {
		t.Fatalf("character = %v, want empty", got)
	}
	if got := mustGet(t, s, domain.Quality); len(got) != 6 {
		t.Fatalf("quality = %v", got)
	}
	if s.Toggle(domain.Character) || s.Toggle(domain.Artist) {
		t.Fatalf("toggles should default to false")
	}
}

func TestSetThenGetSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.sqlite")
	db, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s := openStore(t, db)
	want := domain.TagCollection{"wlop", "wlop", "ask (askzy)"}
	if err := s.Set(ctx, domain.Artist, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.SetToggle(ctx, domain.Character, true); err != nil {
		t.Fatalf("SetToggle: %v", err)
	}
	_ = db.Close()

	db, err = storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	s = openStore(t, db)
	if got := mustGet(t, s, domain.Artist); !reflect.DeepEqual(got, want) {
		t.Fatalf("artist after restart = %v, want %v", got, want)
	}
	if !s.Toggle(domain.Character) {
		t.Fatalf("character toggle lost on restart")
	}
}

func TestCorruptPersistedValueFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	_ = kv.PutMany(ctx, map[string]string{
		domain.Quality.StorageKey():     `{"not":"a list"}`,
		domain.Participant.StorageKey(): `["1boy",`,
		domain.General.StorageKey():     `null`,
		domain.Character.StorageKey():   `[1, 2]`,
		domain.Artist.ToggleKey():       `"yes"`,
	})
	s := openStore(t, kv)
	if got := mustGet(t, s, domain.Quality); !reflect.DeepEqual(got, domain.Default(domain.Quality)) {
		t.Fatalf("quality = %v, want default", got)
	}
	if got := mustGet(t, s, domain.Participant); !reflect.DeepEqual(got, domain.TagCollection{"1girl"}) {
		t.Fatalf("participant = %v, want default", got)
	}
	if got := mustGet(t, s, domain.General); len(got) != 0 {
		t.Fatalf("general = %v, want empty default", got)
	}
	if got := mustGet(t, s, domain.Character); len(got) != 0 {
		t.Fatalf("character = %v, want empty default", got)
	}
	if s.Toggle(domain.Artist) {
		t.Fatalf("artist toggle should fall back to false")
	}
}

func TestDecodeTagsReportsCorruption(t *testing.T) {
	if _, err := decodeTags(`{"x":1}`); !errors.Is(err, domain.ErrPersistedStateCorrupt) {
		t.Fatalf("err = %v, want ErrPersistedStateCorrupt", err)
	}
	tc, err := decodeTags(`[]`)
	if err != nil || tc == nil || len(tc) != 0 {
		t.Fatalf("decodeTags([]) = %#v, %v", tc, err)
	}
}

func TestSetFailureLeavesStateUnchanged(t *testing.T) {
	kv := storage.NewMemory()
	s := openStore(t, kv)
	kv.FailWrites = errors.New("read-only")
	if err := s.Set(context.Background(), domain.General, domain.TagCollection{"smile"}); err == nil {
		t.Fatalf("expected Set to fail")
	}
	if got := mustGet(t, s, domain.General); len(got) != 0 {
		t.Fatalf("general = %v after failed Set", got)
	}
	if u, _ := s.CanUndo(domain.General); u != 0 {
		t.Fatalf("failed Set recorded history")
	}
}

func TestUnknownCollectionAndToggle(t *testing.T) {
	s := openStore(t, storage.NewMemory())
	if _, err := s.Get("bogus"); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("Get(bogus) err = %v", err)
	}
	if err := s.Set(context.Background(), "bogus", nil); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("Set(bogus) err = %v", err)
	}
	if err := s.SetToggle(context.Background(), domain.Quality, true); !errors.Is(err, ErrNotRandomizable) {
		t.Fatalf("SetToggle(quality) err = %v", err)
	}
}

func TestResetRestoresDefaultsAndKeepsToggles(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv)
	_ = s.Set(ctx, domain.Quality, domain.TagCollection{"lowres"})
	_ = s.Set(ctx, domain.Character, domain.TagCollection{"ganyu (genshin impact)"})
	_ = s.SetToggle(ctx, domain.Artist, true)
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for _, c := range domain.Collections {
		if got := mustGet(t, s, c); !reflect.DeepEqual(got, domain.Default(c)) {
			t.Fatalf("%s after reset = %v, want %v", c, got, domain.Default(c))
		}
		raw, ok, _ := kv.Get(ctx, c.StorageKey())
		if !ok || raw != encodeTags(domain.Default(c)) {
			t.Fatalf("%s persisted = %q after reset", c, raw)
		}
	}
	if !s.Toggle(domain.Artist) {
		t.Fatalf("reset should keep toggles")
	}
}

func TestResetFailureIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := openStore(t, kv)
	_ = s.Set(ctx, domain.Quality, domain.TagCollection{"lowres"})
	kv.FailWrites = errors.New("disk full")
	if err := s.Reset(ctx); err == nil {
		t.Fatalf("expected Reset to fail")
	}
	if got := mustGet(t, s, domain.Quality); !reflect.DeepEqual(got, domain.TagCollection{"lowres"}) {
		t.Fatalf("quality = %v after failed reset", got)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())
	snap := s.Snapshot()
	snap.Tags[domain.Participant][0] = "mutated"
	if got := mustGet(t, s, domain.Participant); got[0] != "1girl" {
		t.Fatalf("snapshot shares storage with store")
	}
	_ = s.Set(ctx, domain.Participant, domain.TagCollection{"2girls"})
	if snap.Get(domain.Participant)[0] != "mutated" {
		t.Fatalf("snapshot changed after Set")
	}
}

func TestAddRemoveUndoRedo(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, storage.NewMemory())
	if err := s.Add(ctx, domain.General, "smile", " ", "  blue eyes "); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := mustGet(t, s, domain.General); !reflect.DeepEqual(got, domain.TagCollection{"smile", "blue eyes"}) {
		t.Fatalf("general = %v", got)
	}
	if err := s.Remove(ctx, domain.General, "smile"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	tc, ok, err := s.Undo(ctx, domain.General)
	if err != nil || !ok {
		t.Fatalf("Undo: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(tc, domain.TagCollection{"smile", "blue eyes"}) {
		t.Fatalf("Undo = %v", tc)
	}
	tc, ok, _ = s.Redo(ctx, domain.General)
	if !ok || !reflect.DeepEqual(tc, domain.TagCollection{"blue eyes"}) {
		t.Fatalf("Redo = %v, %v", tc, ok)
	}
	if _, ok, _ := s.Redo(ctx, domain.General); ok {
		t.Fatalf("second Redo should be a no-op")
	}
}

func TestProfileExportImport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profile.json")
	src := openStore(t, storage.NewMemory())
	_ = src.Set(ctx, domain.Character, domain.TagCollection{"ganyu (genshin impact)"})
	_ = src.SetToggle(ctx, domain.Artist, true)
	if err := src.ExportProfile(path); err != nil {
		t.Fatalf("ExportProfile: %v", err)
	}
	dst := openStore(t, storage.NewMemory())
	if err := dst.ImportProfile(ctx, path); err != nil {
		t.Fatalf("ImportProfile: %v", err)
	}
	if !reflect.DeepEqual(dst.Snapshot(), src.Snapshot()) {
		t.Fatalf("imported snapshot differs:\n got %v\nwant %v", dst.Snapshot(), src.Snapshot())
	}
}

func TestImportRejectsInvalidProfile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := storage.WriteFileAtomic(bad, []byte(`{"version":1,"collections":{"quality":"masterpiece"}}`), false); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := openStore(t, storage.NewMemory())
	err := s.ImportProfile(context.Background(), bad)
	if !errors.Is(err, domain.ErrPersistedStateCorrupt) {
		t.Fatalf("err = %v, want ErrPersistedStateCorrupt", err)
	}
	unknown := filepath.Join(dir, "unknown.json")
	_ = storage.WriteFileAtomic(unknown, []byte(`{"version":1,"collections":{"mood":["happy"]}}`), false)
	if err := s.ImportProfile(context.Background(), unknown); err == nil || !strings.Contains(err.Error(), "mood") {
		t.Fatalf("err = %v, want unknown collection", err)
	}
}
