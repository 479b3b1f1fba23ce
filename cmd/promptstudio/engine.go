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
	"time"

	"github.com/spf13/cobra"

	"promptstudio/internal/domain"
	"promptstudio/internal/prompt"
	"promptstudio/internal/search"
	"promptstudio/internal/telemetry"
)

func newClipCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "clip",
		Short: "Print the positive and negative clips composed from the current tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			clip := prompt.Compose(a.Tags.Snapshot())
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), clip)
			}
			printClip(cmd, clip)
			return nil
		},
	}
}

func printClip(cmd *cobra.Command, clip domain.Clip) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleColor.Sprint("positive:"), clip.Positive)
	fmt.Fprintln(w, titleColor.Sprint("negative:"), clip.Negative)
}

func newGenerateCmd(s *session) *cobra.Command {
	var reload bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Resolve toggled fields, compose the clips and generate images",
		Long: `Generate draws a random tag for every field whose toggle is on, stores it
in that collection, composes the clips and sends them to the backend. New
images are appended to the gallery in the order the backend returned them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			if reload {
				if err := a.Gallery.Reload(cmd.Context()); err != nil {
					warnColor.Fprintln(cmd.ErrOrStderr(), "gallery reload failed:", err)
				}
			}
			out, err := a.Orch.Generate(cmd.Context())
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for f, tag := range out.Resolved {
				fmt.Fprintf(w, "%s %s\n", dimColor.Sprintf("random %s:", f), tag)
			}
			for f, msg := range out.ResolveErrors {
				warnColor.Fprintf(w, "random %s failed, kept current tags: %s\n", f, msg)
			}
			printClip(cmd, out.Clip)
			if errors.Is(out.Err, domain.ErrNoResults) {
				warnColor.Fprintln(w, "the backend produced no images")
				return nil
			}
			okColor.Fprintf(w, "%d image(s) in %s\n", len(out.Images), out.Took.Round(time.Millisecond))
			printImages(w, out.Images)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "Reload the gallery first so new ids continue from it")
	return cmd
}

func newShuffleCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "shuffle <field>",
		Short: "Replace a field with one random tag from the backend",
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
			tag, err := a.Orch.Shuffle(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c, tag)
			return nil
		},
	}
}

func newGalleryCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "List and delete generated images",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List every image on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Gallery.Reload(cmd.Context()); err != nil {
				return err
			}
			imgs := a.Gallery.Visible()
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), imgs)
			}
			printImages(cmd.OutOrStdout(), imgs)
			return nil
		},
	}
	del := &cobra.Command{
		Use:   "delete <title>...",
		Short: "Delete images by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Gallery.Reload(cmd.Context()); err != nil {
				return err
			}
			for _, title := range args {
				err := a.Gallery.RemoveTitle(cmd.Context(), title)
				telemetry.Event(telemetry.EventDelete, map[string]any{"ok": err == nil})
				if err != nil {
					return err
				}
				okColor.Fprintln(cmd.OutOrStdout(), "deleted", title)
			}
			return nil
		},
	}
	cmd.AddCommand(list, del)
	return cmd
}

func newSearchCmd(s *session) *cobra.Command {
	var character, artist []string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List gallery images matching character and artist tags",
		Long: `Search asks the backend for images whose prompt contained the given tags.
Character tags are cut at the first comma, so "ganyu, genshin impact" searches
for "ganyu". Without tags the whole gallery is listed.`,
		Example: `  promptstudio search --character "ganyu, genshin impact" --artist wlop`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			var imgs []domain.GalleryImage
			imgs, err = a.Search.Search(cmd.Context(), character, artist)
			if errors.Is(err, search.ErrEmptyQuery) {
				if err = a.Gallery.Reload(cmd.Context()); err == nil {
					imgs = a.Gallery.Visible()
				}
			}
			telemetry.Event(telemetry.EventSearch, map[string]any{"ok": err == nil})
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), imgs)
			}
			printImages(cmd.OutOrStdout(), imgs)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&character, "character", nil, "Character tag (repeatable)")
	cmd.Flags().StringArrayVar(&artist, "artist", nil, "Artist tag (repeatable)")
	return cmd
}

func newSuggestCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <collection> <prefix>",
		Short: "Suggest known tags for autocomplete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			if c != domain.General && !c.Randomizable() {
				return fmt.Errorf("no tag database for %q", c)
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			got, err := a.Backend.SuggestTags(cmd.Context(), c.RemoteField(), search.Sanitize(args[1]))
			if err != nil {
				return err
			}
			if s.asJSON {
				return s.printJSON(cmd.OutOrStdout(), got)
			}
			w := cmd.OutOrStdout()
			for _, t := range got {
				fmt.Fprintf(w, "%s %s\n", t.Tag, dimColor.Sprintf("(%d)", t.N()))
			}
			if len(got) == 0 {
				fmt.Fprintln(w, dimColor.Sprint("(no suggestions for "+strings.TrimSpace(args[1])+")"))
			}
			return nil
		},
	}
}
