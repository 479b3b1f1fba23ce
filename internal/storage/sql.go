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
	"sort"
	"time"
)

// dialect holds the statements that differ between SQLite and Postgres.
type dialect struct {
	name      string
	selectKV  string
	upsertKV  string
	deleteKV  string
	listKeys  string
	countKeys string
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	// language=SQL
	// dialect=SQLite
	selectKV: `SELECT value FROM kv WHERE key = ?`,
	// language=SQL
	// dialect=SQLite
	upsertKV: `INSERT INTO kv(key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	// language=SQL
	// dialect=SQLite
	deleteKV: `DELETE FROM kv WHERE key = ?`,
	// language=SQL
	// dialect=SQLite
	listKeys: `SELECT key FROM kv ORDER BY key`,
	// language=SQL
	// dialect=SQLite
	countKeys: `SELECT COUNT(*) FROM kv`,
}

var postgresDialect = dialect{
	name: DriverPostgres,
	// language=SQL
	// dialect=PostgreSQL
	selectKV: `SELECT value FROM ps_kv WHERE key = $1`,
	// language=SQL
	// dialect=PostgreSQL
	upsertKV: `INSERT INTO ps_kv(key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	// language=SQL
	// dialect=PostgreSQL
	deleteKV: `DELETE FROM ps_kv WHERE key = $1`,
	// language=SQL
	// dialect=PostgreSQL
	listKeys: `SELECT key FROM ps_kv ORDER BY key`,
	// language=SQL
	// dialect=PostgreSQL
	countKeys: `SELECT COUNT(*) FROM ps_kv`,
}

// DB is a Store backed by database/sql.
type DB struct {
	db   *sql.DB
	d    dialect
	path string // sqlite file, empty for postgres
}

// Path returns the SQLite file backing the store, or "" for Postgres.
func (s *DB) Path() string { return s.path }

// Driver returns the dialect name.
func (s *DB) Driver() string { return s.d.name }

// SQL exposes the underlying handle for diagnostics.
func (s *DB) SQL() *sql.DB { return s.db }

func (s *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.d.selectKV, key).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *DB) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.d.upsertKV, key, value, now()); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *DB) PutMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ts := now()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, s.d.upsertKV, k, entries[k], ts); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("put %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *DB) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.d.deleteKV, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.d.listKeys)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Count returns the number of stored keys.
func (s *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.d.countKeys).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *DB) Close() error { return s.db.Close() }

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }
