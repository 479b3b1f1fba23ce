/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// isolate points the config dir at a temp dir and swaps the keyring for an in-memory mock.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	t.Setenv(EnvBackendToken, "")
	keyring.MockInit()
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q, want empty", tok)
	}
	if got, want := cfg.Backend.RoutePrefix, "/api"; got != want {
		t.Fatalf("Backend.RoutePrefix = %q, want %q", got, want)
	}
	if got, want := cfg.State.Driver, "sqlite"; got != want {
		t.Fatalf("State.Driver = %q, want %q", got, want)
	}
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
}

func TestEnvOverridesEmptyPrefix(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendPrefix, "")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.RoutePrefix != "" {
		t.Fatalf("Backend.RoutePrefix = %q, want empty", cfg.Backend.RoutePrefix)
	}
	if name, ok := EnvOverrideFor("backend.route_prefix"); !ok || name != EnvBackendPrefix {
		t.Fatalf("EnvOverrideFor(route_prefix) = %q,%v", name, ok)
	}
}

func TestEnvOverridesTelemetryAndState(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvStateDriver, "POSTGRES")
	t.Setenv(EnvStateDSN, "postgres://u:p@db/ps")
	t.Setenv(EnvBackendTimeoutMs, "2500")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
	if cfg.State.Driver != "postgres" || cfg.State.DSN != "postgres://u:p@db/ps" {
		t.Fatalf("state override not applied: %#v", cfg.State)
	}
	if got := cfg.Backend.Timeout().Milliseconds(); got != 2500 {
		t.Fatalf("Timeout = %dms, want 2500ms", got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Defaults()
	cfg.Backend.BaseURL = "http://gpu-box:8000"
	cfg.General.TelemetryOptIn = true
	if !EnsureClientID(&cfg) {
		t.Fatalf("EnsureClientID should assign an id on defaults")
	}
	if EnsureClientID(&cfg) {
		t.Fatalf("EnsureClientID should keep an existing id")
	}
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "s3cret" {
		t.Fatalf("token = %q, want s3cret", tok)
	}
	if got.Backend.BaseURL != cfg.Backend.BaseURL || got.General.ClientID != cfg.General.ClientID || !got.General.TelemetryOptIn {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestEnvTokenWinsOverKeyring(t *testing.T) {
	isolate(t)
	if err := SetToken("from-keyring"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	t.Setenv(EnvBackendToken, "from-env")
	_, tok, _ := Load()
	if tok != "from-env" {
		t.Fatalf("token = %q, want from-env", tok)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken twice should be a no-op: %v", err)
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("backend: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Backend.BaseURL != Defaults().Backend.BaseURL {
		t.Fatalf("defaults not returned on parse error: %#v", cfg.Backend)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: "DEBUG", Format: "json", Source: true, File: "/tmp/ps.log"}}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/ps.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	if dst.Backend.BaseURL != Defaults().Backend.BaseURL {
		t.Fatalf("empty src field should keep default, got %q", dst.Backend.BaseURL)
	}
}

func TestZeroTimeoutDisablesLimit(t *testing.T) {
	if d := (BackendConfig{}).Timeout(); d != 0 {
		t.Fatalf("Timeout() = %v, want 0", d)
	}
}
