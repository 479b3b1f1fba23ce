/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration from a YAML file in the user scope
// and merges environment overrides on top. The backend token never touches the
// file; it lives in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// BackendConfig points at the image-generation backend.
type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	RoutePrefix string `yaml:"route_prefix"` // prepended to backend-relative image URLs
	TimeoutMs   int    `yaml:"timeout_ms"`   // 0 disables the client timeout
}

// StateConfig selects the durable store behind the tag collections.
// Driver is "sqlite" (DSN is a file path, empty means the default state dir) or "postgres".
type StateConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	ClientID       string `yaml:"client_id"`
	ServeAddr      string `yaml:"serve_addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	State         StateConfig   `yaml:"state"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{ServeAddr: "127.0.0.1:8787"},
		Backend:       BackendConfig{BaseURL: "http://127.0.0.1:8000", RoutePrefix: "/api", TimeoutMs: 120000},
		State:         StateConfig{Driver: "sqlite"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "PS_CONFIG_DIR"
	EnvBackendURL       = "PS_BACKEND_URL"
	EnvBackendPrefix    = "PS_BACKEND_PREFIX"
	EnvBackendTimeoutMs = "PS_BACKEND_TIMEOUT_MS"
	EnvStateDriver      = "PS_STATE_DRIVER"
	EnvStateDSN         = "PS_STATE_DSN"
	EnvTelemetryOptIn   = "PS_TELEMETRY_OPT_IN"
	EnvServeAddr        = "PS_SERVE_ADDR"
	EnvLogLevel         = "PS_LOG_LEVEL"
	EnvLogFormat        = "PS_LOG_FORMAT"
	EnvLogSource        = "PS_LOG_SOURCE"
	EnvLogFile          = "PS_LOG_FILE"
	// EnvBackendToken takes precedence over the keyring, for headless hosts.
	EnvBackendToken = "PS_BACKEND_TOKEN"
)

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PromptStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PromptStudio")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "promptstudio")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StatePath returns the SQLite file used when State.DSN is empty.
func StatePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.sqlite"), nil
}

// Load reads the user config file (if present), applies defaults and env overrides,
// and returns the backend token from the environment or the keyring.
// A malformed file is reported but the defaults are still returned.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var loadErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok := strings.TrimSpace(os.Getenv(EnvBackendToken))
	if tok == "" {
		tok, _ = tokenStore.Get(keyringService, keyringToken)
	}
	return cfg, tok, loadErr
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// EnsureClientID assigns a random client id when none is configured.
// It reports whether cfg changed and should be saved.
func EnsureClientID(cfg *AppConfig) bool {
	if strings.TrimSpace(cfg.General.ClientID) != "" {
		return false
	}
	cfg.General.ClientID = uuid.NewString()
	return true
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.ClientID); s != "" {
		dst.General.ClientID = s
	}
	if s := strings.TrimSpace(src.General.ServeAddr); s != "" {
		dst.General.ServeAddr = s
	}
	if s := strings.TrimSpace(src.Backend.BaseURL); s != "" {
		dst.Backend.BaseURL = s
	}
	if s := strings.TrimSpace(src.Backend.RoutePrefix); s != "" {
		dst.Backend.RoutePrefix = s
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if s := strings.ToLower(strings.TrimSpace(src.State.Driver)); s != "" {
		dst.State.Driver = s
	}
	if s := strings.TrimSpace(src.State.DSN); s != "" {
		dst.State.DSN = s
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v, ok := os.LookupEnv(EnvBackendPrefix); ok {
		// an explicitly empty prefix is meaningful: URLs are used as returned
		cfg.Backend.RoutePrefix = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStateDriver)); v != "" {
		cfg.State.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStateDSN)); v != "" {
		cfg.State.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvServeAddr)); v != "" {
		cfg.General.ServeAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"backend.base_url":         EnvBackendURL,
	"backend.route_prefix":     EnvBackendPrefix,
	"backend.timeout_ms":       EnvBackendTimeoutMs,
	"state.driver":             EnvStateDriver,
	"state.dsn":                EnvStateDSN,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.serve_addr":       EnvServeAddr,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok {
		return "", false
	}
	if _, set := os.LookupEnv(name); !set {
		return "", false
	}
	if name != EnvBackendPrefix && os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the configured HTTP timeout; zero means no client-side limit.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
