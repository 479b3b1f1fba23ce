/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"promptstudio/internal/app"
	"promptstudio/internal/config"
	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
	"promptstudio/internal/telemetry"
	"promptstudio/internal/version"
)

// session carries the loaded configuration and the lazily opened engine
// through one command invocation.
type session struct {
	cfg     config.AppConfig
	token   string
	app     *app.App
	asJSON  bool
	noColor bool
	closed  bool
}

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	dimColor   = color.New(color.FgHiBlack)
)

func newRootCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptstudio",
		Short: "Compose tag prompts, generate images and manage the gallery",
		Long: `Prompt Studio keeps ordered tag collections, composes them into prompt
clips, asks the image backend to generate and keeps a local view of the
resulting gallery.

Configuration lives in config.yaml under the user config directory and can be
overridden with PS_* environment variables or a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return s.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
	}
	cmd.PersistentFlags().BoolVar(&s.asJSON, "json", false, "Print machine readable JSON")
	cmd.PersistentFlags().BoolVar(&s.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		newVersionCmd(),
		newTagsCmd(s),
		newToggleCmd(s),
		newClipCmd(s),
		newGenerateCmd(s),
		newShuffleCmd(s),
		newGalleryCmd(s),
		newSearchCmd(s),
		newSuggestCmd(s),
		newTagDBCmd(s),
		newExportCmd(s),
		newServeCmd(s),
		newConfigCmd(s),
	)
	return cmd
}

func (s *session) init(cmd *cobra.Command) error {
	if s.noColor {
		color.NoColor = true
	}
	cfg, token, err := config.Load()
	if err != nil {
		// defaults are still usable
		fmt.Fprintln(cmd.ErrOrStderr(), warnColor.Sprint("warning: "), err)
	}
	if config.EnsureClientID(&cfg) {
		if err := config.Save(cfg, ""); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), warnColor.Sprint("warning: "), "save client id:", err)
		}
	}
	s.cfg, s.token = cfg, token

	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		ClientID:  cfg.General.ClientID,
		Output:    cmd.ErrOrStderr(),
	})
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	tc.ClientID = cfg.General.ClientID
	telemetry.SetDefault(telemetry.New(tc))
	telemetry.Event(telemetry.EventStarted, map[string]any{"cmd": cmd.Name()})
	applog.WithComponent("cli").Debug("start", slog.String("cmd", cmd.CommandPath()))
	return nil
}

// engine opens the engine on first use.
func (s *session) engine(ctx context.Context) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := app.Open(ctx, s.cfg, s.token)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

// ExportProfile lets crash recovery rescue the tag state of the open engine.
func (s *session) ExportProfile(path string) error {
	if s.app == nil {
		return errors.New("no tag state loaded")
	}
	return s.app.Tags.ExportProfile(path)
}

func (s *session) close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.app != nil {
		if err := s.app.Close(); err != nil {
			applog.WithComponent("cli").Warn("close state", slog.Any("err", err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	telemetry.Default().Flush(ctx)
	_ = applog.Close()
}

func (s *session) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Prompt Studio", version.String())
		},
	}
}

func collectionArg(name string) (domain.Collection, error) {
	c, ok := domain.ParseCollection(name)
	if !ok {
		names := make([]string, 0, len(domain.Collections))
		for _, c := range domain.Collections {
			names = append(names, string(c))
		}
		return "", fmt.Errorf("unknown collection %q (one of %s)", name, strings.Join(names, ", "))
	}
	return c, nil
}

func randomizableArg(name string) (domain.Collection, error) {
	c, err := collectionArg(name)
	if err != nil {
		return "", err
	}
	if !c.Randomizable() {
		return "", fmt.Errorf("%q has no random source (use character or artist)", name)
	}
	return c, nil
}

func parseOnOff(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", v)
}

func printImages(w io.Writer, imgs []domain.GalleryImage) {
	if len(imgs) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("(no images)"))
		return
	}
	for _, img := range imgs {
		fmt.Fprintf(w, "%4d  %s  %s\n", img.ID, titleColor.Sprint(img.Title), dimColor.Sprint(img.Original))
	}
}
