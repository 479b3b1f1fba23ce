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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"promptstudio/internal/httpapi"
	applog "promptstudio/internal/log"
)

func newServeCmd(s *session) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON API for a browser front-end",
		Long: `Starts the Prompt Studio API on the configured address (general.serve_addr).
The gallery is loaded from the backend on start; a failure there is logged and
the gallery starts empty.`,
		Example: `  # Start on the configured address
  promptstudio serve

  # Start on a custom address
  promptstudio serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := applog.WithComponent("serve")
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Gallery.Reload(cmd.Context()); err != nil {
				l.Warn("initial gallery load failed", slog.Any("err", err))
			}
			if addr == "" {
				addr = s.cfg.General.ServeAddr
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpapi.New(a).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				l.Info("Prompt Studio API available", slog.String("addr", addr), slog.String("url", "http://"+addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				l.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					l.Error("Server shutdown failed", slog.Any("err", err))
					return err
				}
				l.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	return cmd
}
