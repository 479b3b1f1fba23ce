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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"promptstudio/internal/backend"
	"promptstudio/internal/config"
)

func newTagDBCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tagdb",
		Short: "Maintain the backend tag database",
	}

	var character, artist []string
	selection := func() backend.TagSelection {
		return backend.TagSelection{CharacterTags: character, ArtistTags: artist}
	}
	addSelectionFlags := func(c *cobra.Command) {
		c.Flags().StringArrayVar(&character, "character", nil, "Character tag (repeatable)")
		c.Flags().StringArrayVar(&artist, "artist", nil, "Artist tag (repeatable)")
	}

	deleted := &cobra.Command{
		Use:   "deleted <character|artist>",
		Short: "List tags removed from the random pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			got, err := a.Backend.DeletedTags(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), got)
			}
			for _, t := range got {
				fmt.Fprintln(cmd.OutOrStdout(), t.Tag)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove tags from the random pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := a.Backend.RemoveTags(cmd.Context(), selection())
			if err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	addSelectionFlags(remove)

	restore := &cobra.Command{
		Use:   "restore",
		Short: "Put previously removed tags back into the random pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := a.Backend.RestoreDeletedTags(cmd.Context(), selection())
			if err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	addSelectionFlags(restore)

	var yes bool
	restoreAll := &cobra.Command{
		Use:   "restore-all",
		Short: "Rebuild the whole tag database on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("restore-all discards every removal; pass --yes to confirm")
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := a.Backend.RestoreDatabase(cmd.Context())
			if err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	restoreAll.Flags().BoolVar(&yes, "yes", false, "Confirm the rebuild")

	cmd.AddCommand(deleted, remove, restore, restoreAll)
	return cmd
}

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration and manage the backend token",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if s.asJSON {
				return s.printJSON(w, s.cfg)
			}
			path, _ := config.ConfigPath()
			fmt.Fprintln(w, dimColor.Sprint("# "+path))
			data, err := yaml.Marshal(s.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(w, string(data))
			var overridden []string
			for _, key := range []string{
				"backend.base_url", "backend.route_prefix", "backend.timeout_ms",
				"state.driver", "state.dsn", "general.telemetry_opt_in", "general.serve_addr",
				"logging.level", "logging.format", "logging.source", "logging.file",
			} {
				if env, ok := config.EnvOverrideFor(key); ok {
					overridden = append(overridden, key+" <- "+env)
				}
			}
			if len(overridden) > 0 {
				warnColor.Fprintln(w, "# overridden by environment:")
				for _, o := range overridden {
					warnColor.Fprintln(w, "#   "+o)
				}
			}
			token := "not set"
			if s.token != "" {
				token = "set"
			}
			fmt.Fprintln(w, dimColor.Sprint("# backend token: "+token))
			return nil
		},
	}

	var drop bool
	setToken := &cobra.Command{
		Use:   "set-token [token]",
		Short: "Store the backend bearer token in the OS keyring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if drop {
				if err := config.ClearToken(); err != nil {
					return err
				}
				okColor.Fprintln(cmd.OutOrStdout(), "token removed")
				return nil
			}
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				return errors.New("token required (or --clear)")
			}
			if err := config.SetToken(strings.TrimSpace(args[0])); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			okColor.Fprintln(cmd.OutOrStdout(), "token stored")
			return nil
		},
	}
	setToken.Flags().BoolVar(&drop, "clear", false, "Remove the stored token")

	cmd.AddCommand(show, setToken)
	return cmd
}
