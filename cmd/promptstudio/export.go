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

	"github.com/spf13/cobra"

	"promptstudio/internal/domain"
	"promptstudio/internal/export"
	"promptstudio/internal/prompt"
	"promptstudio/internal/search"
)

func newExportCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the gallery",
	}

	var (
		preset    string
		title     string
		columns   int
		workers   int
		character []string
		artist    []string
		noClip    bool
	)
	sheet := &cobra.Command{
		Use:   "contact-sheet <out.pdf|out.png>",
		Short: "Write a contact sheet of gallery thumbnails",
		Long: `Writes the gallery, or the images matching --character/--artist, as a grid
of thumbnails with their titles. The format follows the file extension.
Thumbnails that cannot be fetched are drawn as placeholders.`,
		Example: `  promptstudio export contact-sheet gallery.pdf --preset large
  promptstudio export contact-sheet ganyu.png --character ganyu`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := export.ParsePreset(preset)
			if err != nil {
				return err
			}
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			imgs, err := a.Search.Search(cmd.Context(), character, artist)
			if errors.Is(err, search.ErrEmptyQuery) {
				if err = a.Gallery.Reload(cmd.Context()); err == nil {
					imgs = a.Gallery.Visible()
				}
			}
			if err != nil {
				return err
			}
			opt := export.Options{
				Preset:  p,
				Columns: columns,
				Title:   title,
				Workers: workers,
				PathFor: a.Gallery.Links().BackendPath,
			}
			if !noClip {
				var clip domain.Clip
				if last, ok := a.Orch.LastClip(); ok {
					clip = last
				} else {
					clip = prompt.Compose(a.Tags.Snapshot())
				}
				opt.Clip = &clip
			}
			missing, err := export.ContactSheet(cmd.Context(), a.Backend, imgs, args[0], opt)
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "wrote %s (%d image(s))\n", args[0], len(imgs))
			if missing > 0 {
				warnColor.Fprintf(cmd.OutOrStdout(), "%d thumbnail(s) could not be fetched\n", missing)
			}
			return nil
		},
	}
	sheet.Flags().StringVar(&preset, "preset", string(export.PresetStandard), "Layout preset: compact, standard or large")
	sheet.Flags().StringVar(&title, "title", "Prompt Studio gallery", "Sheet title")
	sheet.Flags().IntVar(&columns, "columns", 0, "Override the preset's column count")
	sheet.Flags().IntVar(&workers, "workers", 0, "Parallel thumbnail downloads (0 = default)")
	sheet.Flags().StringArrayVar(&character, "character", nil, "Only images with this character tag (repeatable)")
	sheet.Flags().StringArrayVar(&artist, "artist", nil, "Only images with this artist tag (repeatable)")
	sheet.Flags().BoolVar(&noClip, "no-clip", false, "Leave the prompt clip off the sheet")
	var (
		zCharacter []string
		zArtist    []string
		zWorkers   int
	)
	archive := &cobra.Command{
		Use:   "archive <out.zip>",
		Short: "Download the original images into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.engine(cmd.Context())
			if err != nil {
				return err
			}
			imgs, err := a.Search.Search(cmd.Context(), zCharacter, zArtist)
			if errors.Is(err, search.ErrEmptyQuery) {
				if err = a.Gallery.Reload(cmd.Context()); err == nil {
					imgs = a.Gallery.Visible()
				}
			}
			if err != nil {
				return err
			}
			clip := prompt.Compose(a.Tags.Snapshot())
			if last, ok := a.Orch.LastClip(); ok {
				clip = last
			}
			res, err := export.Archive(cmd.Context(), a.Backend, imgs, args[0], export.ArchiveOptions{
				Clip:    &clip,
				PathFor: a.Gallery.Links().BackendPath,
				Workers: zWorkers,
			})
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "wrote %s (%d image(s))\n", args[0], res.Written)
			if n := len(res.Skipped); n > 0 {
				warnColor.Fprintf(cmd.OutOrStdout(), "%d image(s) could not be fetched\n", n)
			}
			return nil
		},
	}
	archive.Flags().StringArrayVar(&zCharacter, "character", nil, "Only images with this character tag (repeatable)")
	archive.Flags().StringArrayVar(&zArtist, "artist", nil, "Only images with this artist tag (repeatable)")
	archive.Flags().IntVar(&zWorkers, "workers", 0, "Parallel downloads (0 = default)")

	cmd.AddCommand(sheet, archive)
	return cmd
}
