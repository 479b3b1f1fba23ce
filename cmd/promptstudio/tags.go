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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"promptstudio/internal/domain"
	"promptstudio/internal/recipe"
)

func newTagsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect and edit the tag collections",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show every collection and its random toggle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			snap := a.Tags.Snapshot()
			w := cmd.OutOrStdout()
			if s.asJSON {
				return s.printJSON(w, snap)
			}
			for _, c := range domain.Collections {
				marker := ""
				if c.Randomizable() && snap.Toggle(c) {
					marker = warnColor.Sprint(" [random]")
				}
				fmt.Fprintf(w, "%s%s: %s\n", titleColor.Sprint(c), marker, strings.Join(snap.Get(c), ", "))
			}
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <collection>",
		Short: "Print one collection, one tag per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			tc, err := a.Tags.Get(c)
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), tc)
			}
			for _, t := range tc {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <collection> [tag...]",
		Short: "Replace a collection; no tags empties it",
		Example: `  promptstudio tags set artist wlop "ask (askzy)"
  promptstudio tags set additionalNegative`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Tags.Set(cmd.Context(), c, domain.TagCollection(args[1:])); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "%s: %d tag(s)\n", c, len(args)-1)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <collection> <tag>...",
		Short: "Append tags to a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			return a.Tags.Add(cmd.Context(), c, args[1:]...)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <collection> <tag>",
		Short: "Remove a tag from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			return a.Tags.Remove(cmd.Context(), c, args[1])
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore every collection to its default; toggles are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Tags.Reset(cmd.Context()); err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), "collections reset to defaults")
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export <file.json>",
		Short: "Write all collections and toggles to a profile file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			return a.Tags.ExportProfile(args[0])
		},
	}

	imp := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Replace all collections and toggles from a profile file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			return a.Tags.ImportProfile(cmd.Context(), args[0])
		},
	}

	load := &cobra.Command{
		Use:   "load <recipe.txt>",
		Short: "Replace the collections named in a plain-text recipe",
		Long: `Load reads a recipe with one section per collection:

  # character
  ganyu, genshin impact
  @random
  artist: wlop, ask (askzy)

Collections the recipe does not mention are left alone. "@random" turns the
random toggle of character or artist on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			r, errs := recipe.Parse(string(data))
			if len(errs) > 0 {
				for _, e := range errs {
					warnColor.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
				}
				return fmt.Errorf("%s: %d problem(s), nothing loaded", args[0], len(errs))
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range r.Order {
				if err := a.Tags.Set(cmd.Context(), c, r.Tags[c]); err != nil {
					return err
				}
			}
			for c, on := range r.Random {
				if err := a.Tags.SetToggle(cmd.Context(), c, on); err != nil {
					return err
				}
			}
			okColor.Fprintf(cmd.OutOrStdout(), "loaded %d collection(s)\n", len(r.Order))
			return nil
		},
	}

	cmd.AddCommand(list, get, set, add, remove, reset, export, imp, load)
	return cmd
}

func newToggleCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Random-resolution toggles for character, artist and general",
	}
	get := &cobra.Command{
		Use:   "get <field>",
		Short: "Show whether a field is drawn at random before generating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := randomizableArg(args[0])
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			on := a.Tags.Toggle(c)
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), map[string]any{"field": c, "on": on})
			}
			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c, state)
			return nil
		},
	}
	set := &cobra.Command{
		Use:   "set <field> on|off",
		Short: "Turn random resolution for a field on or off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := randomizableArg(args[0])
			if err != nil {
				return err
			}
			on, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			return a.Tags.SetToggle(cmd.Context(), c, on)
		},
	}
	cmd.AddCommand(get, set)
	return cmd
}
