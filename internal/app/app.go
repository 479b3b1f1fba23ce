/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package app wires the engine together from the user configuration: the
// durable tag store, the backend client and the components built on them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"promptstudio/internal/backend"
	"promptstudio/internal/config"
	"promptstudio/internal/gallery"
	applog "promptstudio/internal/log"
	"promptstudio/internal/orchestrator"
	"promptstudio/internal/resolver"
	"promptstudio/internal/search"
	"promptstudio/internal/storage"
	"promptstudio/internal/tags"
)

// App holds one wired engine. Close releases the state store.
type App struct {
	Config   config.AppConfig
	StateDir string
	KV       storage.Store
	Tags     *tags.Store
	Backend  *backend.Client
	Resolver *resolver.Resolver
	Gallery  *gallery.Store
	Search   *search.Filter
	Orch     *orchestrator.Orchestrator
}

// Open builds the engine. The gallery starts empty; callers that show it
// call Gallery.Reload.
func Open(ctx context.Context, cfg config.AppConfig, token string) (*App, error) {
	l := applog.WithComponent("app")
	dsn, stateDir, err := stateLocation(cfg.State)
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(ctx, cfg.State.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open state (%s): %w", cfg.State.Driver, err)
	}
	ts, err := tags.Open(ctx, kv, tags.Options{})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	client := backend.NewClient(cfg.Backend.BaseURL, token,
		backend.WithTimeout(cfg.Backend.Timeout()),
		backend.WithClientID(cfg.General.ClientID))
	res := resolver.New(client)
	gal := gallery.New(client, gallery.Links{Prefix: cfg.Backend.RoutePrefix})
	a := &App{
		Config:   cfg,
		StateDir: stateDir,
		KV:       kv,
		Tags:     ts,
		Backend:  client,
		Resolver: res,
		Gallery:  gal,
		Search:   search.New(client, gal),
		Orch:     orchestrator.New(ts, res, client, gal),
	}
	l.DebugContext(ctx, "engine ready", slog.String("driver", cfg.State.Driver), slog.String("backend", client.BaseURL))
	return a, nil
}

// Close releases the state store.
func (a *App) Close() error {
	if a == nil || a.KV == nil {
		return nil
	}
	return a.KV.Close()
}

// stateLocation resolves the DSN and the directory used for crash artifacts.
func stateLocation(sc config.StateConfig) (dsn, dir string, err error) {
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	dsn = strings.TrimSpace(sc.DSN)
	switch driver {
	case "", storage.DriverSQLite:
		if dsn == "" {
			if dsn, err = config.StatePath(); err != nil {
				return "", "", err
			}
		}
		return dsn, filepath.Dir(dsn), nil
	case storage.DriverPostgres, "pgx":
		if dsn == "" {
			return "", "", errors.New("state.dsn is required for the postgres driver")
		}
	}
	dir, err = config.Dir()
	return dsn, dir, err
}
