/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := testCtx(t)
	path := filepath.Join(t.TempDir(), "state.sqlite")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, ok, err := db.Get(ctx, "qualityTags"); err != nil || ok {
		t.Fatalf("Get on empty store = ok:%v err:%v", ok, err)
	}
	if err := db.Put(ctx, "qualityTags", `["masterpiece"]`); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put(ctx, "qualityTags", `["best quality"]`); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// survives reopen
	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, ok, err := db.Get(ctx, "qualityTags")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if v != `["best quality"]` {
		t.Fatalf("Get = %q, want %q", v, `["best quality"]`)
	}
	if n, err := db.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count = %d,%v want 1", n, err)
	}
	if err := db.Delete(ctx, "qualityTags"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := db.Get(ctx, "qualityTags"); ok {
		t.Fatalf("key still present after Delete")
	}
}

func TestSQLitePutManyAndKeys(t *testing.T) {
	ctx := testCtx(t)
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "state.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	entries := map[string]string{"b": "2", "a": "1", "c": "3"}
	if err := db.PutMany(ctx, entries); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	keys, err := db.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if fmt.Sprint(keys) != "[a b c]" {
		t.Fatalf("Keys = %v, want [a b c]", keys)
	}
	if err := db.PutMany(ctx, nil); err != nil {
		t.Fatalf("PutMany(nil): %v", err)
	}
}

func TestSQLitePutManyIsAtomic(t *testing.T) {
	ctx := testCtx(t)
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "state.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	if err := db.Put(ctx, "a", "old"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// a trigger rejecting "z" makes the second statement of the batch fail
	if _, err := db.SQL().ExecContext(ctx, `CREATE TRIGGER reject_z BEFORE INSERT ON kv WHEN new.key = 'z' BEGIN SELECT RAISE(ABORT, 'rejected'); END;`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	if err := db.PutMany(ctx, map[string]string{"a": "new", "z": "boom"}); err == nil {
		t.Fatalf("expected PutMany to fail")
	}
	if v, _, _ := db.Get(ctx, "a"); v != "old" {
		t.Fatalf("partial batch visible: a = %q, want old", v)
	}
}

func TestOpenSQLiteChecked_RebuildsCorruptFile(t *testing.T) {
	ctx := testCtx(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "state.sqlite")
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE, NOT EVEN CLOSE. ............................................................................................"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	db, rebuilt, err := OpenSQLiteChecked(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLiteChecked: %v", err)
	}
	defer db.Close()
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	if n, err := db.Count(ctx); err != nil || n != 0 {
		t.Fatalf("rebuilt store Count = %d,%v want 0", n, err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", filepath.Join(dir, BackupsDirName))
	}
}

func TestOpenSQLiteChecked_HealthyFileIsKept(t *testing.T) {
	ctx := testCtx(t)
	path := filepath.Join(t.TempDir(), "state.sqlite")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = db.Put(ctx, "k", "v")
	_ = db.Close()
	db, rebuilt, err := OpenSQLiteChecked(ctx, path)
	if err != nil || rebuilt {
		t.Fatalf("OpenSQLiteChecked = rebuilt:%v err:%v", rebuilt, err)
	}
	defer db.Close()
	if v, ok, _ := db.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("value lost: %q %v", v, ok)
	}
}

func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	ctx := testCtx(t)
	path := filepath.Join(t.TempDir(), "state.sqlite")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`INSERT INTO kv(key, value) VALUES('participantTags', '["2girls"]');`,
	}
	for _, q := range stmts {
		if _, err := raw.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = raw.Close()

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()
	if v, err := db.SchemaVersion(ctx); err != nil || v != schemaVersion {
		t.Fatalf("SchemaVersion = %d,%v want %d", v, err, schemaVersion)
	}
	if v, ok, _ := db.Get(ctx, "participantTags"); !ok || v != `["2girls"]` {
		t.Fatalf("v1 data lost: %q", v)
	}
	if err := db.Put(ctx, "participantTags", `["1boy"]`); err != nil {
		t.Fatalf("Put after migration: %v", err)
	}
	var idx int
	if err := db.SQL().QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_kv_updated'`).Scan(&idx); err != nil || idx != 1 {
		t.Fatalf("expected idx_kv_updated after migration, got %d (%v)", idx, err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.PutMany(ctx, map[string]string{"x": "1", "y": "2"}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	if v, ok, _ := m.Get(ctx, "y"); !ok || v != "2" {
		t.Fatalf("Get(y) = %q,%v", v, ok)
	}
	boom := errors.New("disk full")
	m.FailWrites = boom
	if err := m.Put(ctx, "x", "9"); !errors.Is(err, boom) {
		t.Fatalf("Put err = %v, want %v", err, boom)
	}
	if v, _, _ := m.Get(ctx, "x"); v != "1" {
		t.Fatalf("failed write changed value: %q", v)
	}
	_ = m.Close()
	if _, _, err := m.Get(ctx, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after Close err = %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mongo", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	s, err := Open(context.Background(), DriverMemory, "")
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	_ = s.Close()
}

func TestWriteFileAtomicKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	if err := WriteFileAtomic(path, []byte("one"), true); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), true); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "two" {
		t.Fatalf("content = %q, want two", b)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if len(entries) != 1 {
		t.Fatalf("backups = %d, want 1", len(entries))
	}
}

func openPGForTest(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("PS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PS_TEST_PG_DSN not set")
	}
	db, err := OpenPostgres(testCtx(t), dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	return db
}

func TestPostgresRoundTrip(t *testing.T) {
	db := openPGForTest(t)
	defer db.Close()
	ctx := testCtx(t)
	key := fmt.Sprintf("test_%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = db.Delete(context.Background(), key) })
	if err := db.PutMany(ctx, map[string]string{key: `["a"]`}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}
	if v, ok, err := db.Get(ctx, key); err != nil || !ok || v != `["a"]` {
		t.Fatalf("Get = %q,%v,%v", v, ok, err)
	}
}
