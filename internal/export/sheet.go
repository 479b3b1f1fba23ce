/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders the gallery into a printable contact sheet: a grid
// of thumbnails with their titles and, optionally, the prompt that produced them.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
)

// ErrNoImages is returned when there is nothing to export.
var ErrNoImages = errors.New("no images to export")

// Source fetches image bytes; *backend.Client satisfies it.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// cell is one gallery image ready for layout. pic is a placeholder when the
// fetch or decode failed.
type cell struct {
	img domain.GalleryImage
	pic image.Image
	err error
}

// ContactSheet writes images to outPath as PDF or PNG and reports how many
// thumbnails could not be fetched. Missing thumbnails are drawn as placeholders.
func ContactSheet(ctx context.Context, src Source, images []domain.GalleryImage, outPath string, opt Options) (missing int, err error) {
	if len(images) == 0 {
		return 0, ErrNoImages
	}
	opt, err = opt.normalize(outPath)
	if err != nil {
		return 0, err
	}
	cells, err := collect(ctx, src, images, opt)
	if err != nil {
		return 0, err
	}
	for _, c := range cells {
		if c.err != nil {
			missing++
		}
	}
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return missing, fmt.Errorf("ensure out dir: %w", err)
		}
	}
	switch opt.Format {
	case FormatPNG:
		err = writePNG(cells, outPath, opt)
	default:
		err = writePDF(cells, outPath, opt)
	}
	return missing, err
}

// collect fetches and scales every thumbnail with a bounded number of workers.
// Individual failures are kept per cell; only cancellation aborts.
func collect(ctx context.Context, src Source, images []domain.GalleryImage, opt Options) ([]cell, error) {
	l := applog.WithComponent("export")
	cells := make([]cell, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for i, img := range images {
		cells[i].img = img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pic, err := fetchPicture(gctx, src, img, opt)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.WarnContext(ctx, "thumbnail unavailable", slog.String("title", img.Title), slog.Any("err", err))
				cells[i].err = err
				cells[i].pic = placeholder(opt.ThumbPx, opt.ThumbPx)
				return nil
			}
			cells[i].pic = pic
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cells, nil
}

func fetchPicture(ctx context.Context, src Source, img domain.GalleryImage, opt Options) (image.Image, error) {
	var lastErr error
	for _, u := range []string{img.Thumbnail, img.Original} {
		if strings.TrimSpace(u) == "" {
			continue
		}
		data, err := src.Fetch(ctx, opt.PathFor(u))
		if err != nil {
			lastErr = err
			continue
		}
		pic, err := decodeImage(data)
		if err != nil {
			lastErr = err
			continue
		}
		return fitWithin(pic, opt.ThumbPx, opt.ThumbPx), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("image %q has no URL", img.Title)
	}
	return nil, lastErr
}
