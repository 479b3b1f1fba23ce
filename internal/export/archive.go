/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
	"promptstudio/internal/storage"
)

// ManifestName is the text file at the root of every archive.
const ManifestName = "promptstudio.manifest.txt"

// ArchiveOptions controls Archive. PathFor and Workers behave as in Options.
type ArchiveOptions struct {
	Clip    *domain.Clip
	PathFor func(displayURL string) string
	Workers int
}

// ArchiveResult reports what went into the archive.
type ArchiveResult struct {
	Written int
	Skipped []string // titles whose original could not be fetched
}

// Archive downloads the original of every image and zips them into destZip,
// one <title>.png per image plus a manifest. Images that cannot be fetched are
// listed in the manifest and skipped; only cancellation aborts.
func Archive(ctx context.Context, src Source, images []domain.GalleryImage, destZip string, opt ArchiveOptions) (ArchiveResult, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "archive").With(slog.String("zip", destZip))
	if len(images) == 0 {
		return ArchiveResult{}, ErrNoImages
	}
	if strings.TrimSpace(destZip) == "" {
		return ArchiveResult{}, fmt.Errorf("destination is required")
	}
	if opt.PathFor == nil {
		opt.PathFor = func(s string) string { return s }
	}
	if opt.Workers <= 0 {
		opt.Workers = 4
	}

	blobs := make([][]byte, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if strings.TrimSpace(img.Original) == "" {
				return nil
			}
			data, err := src.Fetch(gctx, opt.PathFor(img.Original))
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.WarnContext(ctx, "original unavailable", slog.String("title", img.Title), slog.Any("err", err))
				return nil
			}
			blobs[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ArchiveResult{}, err
	}

	var (
		res ArchiveResult
		buf bytes.Buffer
	)
	zw := zip.NewWriter(&buf)
	seen := map[string]int{}
	var names []string
	for i, img := range images {
		if blobs[i] == nil {
			res.Skipped = append(res.Skipped, img.Title)
			continue
		}
		name := domain.FileName(img.Title)
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%d.png", strings.TrimSuffix(name, ".png"), n)
		}
		seen[domain.FileName(img.Title)]++
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: time.Now()})
		if err != nil {
			return res, fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write(blobs[i]); err != nil {
			return res, fmt.Errorf("write %s: %w", name, err)
		}
		names = append(names, name)
		res.Written++
	}

	mw, err := zw.Create(ManifestName)
	if err != nil {
		return res, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := mw.Write([]byte(manifest(names, res.Skipped, opt.Clip))); err != nil {
		return res, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("finish zip: %w", err)
	}
	if err := storage.WriteFileAtomic(destZip, buf.Bytes(), false); err != nil {
		return res, fmt.Errorf("write zip: %w", err)
	}
	l.Info("gallery archived", slog.Int("files", res.Written), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func manifest(names, skipped []string, clip *domain.Clip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prompt Studio Gallery Archive\nCreated: %s\n", time.Now().Format(time.RFC3339))
	if clip != nil {
		fmt.Fprintf(&b, "Positive: %s\nNegative: %s\n", clip.Positive, clip.Negative)
	}
	fmt.Fprintf(&b, "\nFiles (%d):\n", len(names))
	for _, n := range names {
		b.WriteString("  " + n + "\n")
	}
	if len(skipped) > 0 {
		fmt.Fprintf(&b, "\nNot available (%d):\n", len(skipped))
		for _, s := range skipped {
			b.WriteString("  " + s + "\n")
		}
	}
	return b.String()
}
