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
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"promptstudio/internal/domain"
)

type fakeSource struct {
	mu    sync.Mutex
	files map[string][]byte
	asked []string
}

func (f *fakeSource) Fetch(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, path)
	b, ok := f.files[path]
	if !ok {
		return nil, errors.New("404")
	}
	return b, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func fixture(t *testing.T) (*fakeSource, []domain.GalleryImage) {
	t.Helper()
	src := &fakeSource{files: map[string][]byte{
		"/thumb/a_0.png":  pngBytes(t, 350, 350),
		"/images/b_0.png": pngBytes(t, 200, 400),
	}}
	imgs := []domain.GalleryImage{
		{ID: 0, Title: "a_0", Original: "/api/images/a_0.png?v=1", Thumbnail: "/api/thumb/a_0.png?v=1"},
		{ID: 1, Title: "b_0", Original: "/api/images/b_0.png?v=1", Thumbnail: "/api/thumb/b_0.png?v=1"},
		{ID: 2, Title: "gone_0", Original: "/api/images/gone_0.png", Thumbnail: "/api/thumb/gone_0.png"},
	}
	return src, imgs
}

func stripPrefix(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "/api")
}

func TestContactSheetPDF(t *testing.T) {
	src, imgs := fixture(t)
	out := filepath.Join(t.TempDir(), "sheets", "gallery.pdf")
	clip := &domain.Clip{Positive: "1girl, masterpiece", Negative: "lowres"}
	missing, err := ContactSheet(context.Background(), src, imgs, out, Options{Columns: 2, Clip: clip, PathFor: stripPrefix})
	if err != nil {
		t.Fatalf("ContactSheet: %v", err)
	}
	if missing != 1 {
		t.Fatalf("missing = %d, want 1", missing)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", b[:min(8, len(b))])
	}
}

func TestContactSheetPNG(t *testing.T) {
	src, imgs := fixture(t)
	out := filepath.Join(t.TempDir(), "gallery.png")
	if _, err := ContactSheet(context.Background(), src, imgs, out, Options{Columns: 2, ThumbPx: 100, PathFor: stripPrefix}); err != nil {
		t.Fatalf("ContactSheet: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantW := pngGap + 2*(100+pngGap)
	wantH := pngHeadH + pngGap + 2*(100+pngLabelH+pngGap)
	if cfg.Width != wantW || cfg.Height != wantH {
		t.Fatalf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, wantW, wantH)
	}
}

func TestThumbnailFallsBackToOriginal(t *testing.T) {
	src, imgs := fixture(t)
	opt, _ := Options{ThumbPx: 64, PathFor: stripPrefix}.normalize("x.pdf")
	cells, err := collect(context.Background(), src, imgs[1:2], opt)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if cells[0].err != nil {
		t.Fatalf("cell err = %v", cells[0].err)
	}
	if b := cells[0].pic.Bounds(); b.Dx() != 32 || b.Dy() != 64 {
		t.Fatalf("scaled = %v, want 32x64", b)
	}
}

func TestContactSheetErrors(t *testing.T) {
	src, imgs := fixture(t)
	dir := t.TempDir()
	if _, err := ContactSheet(context.Background(), src, nil, filepath.Join(dir, "a.pdf"), Options{}); !errors.Is(err, ErrNoImages) {
		t.Fatalf("err = %v, want ErrNoImages", err)
	}
	if _, err := ContactSheet(context.Background(), src, imgs, filepath.Join(dir, "a.tiff"), Options{}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ContactSheet(ctx, src, imgs, filepath.Join(dir, "a.pdf"), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFitWithin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	if b := fitWithin(img, 100, 100).Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("fitWithin = %v", b)
	}
	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	if fitWithin(small, 100, 100) != image.Image(small) {
		t.Fatalf("small image should be returned unchanged")
	}
}

func TestParsePreset(t *testing.T) {
	for in, want := range map[string]PresetName{"": PresetStandard, "Compact": PresetCompact, "large": PresetLarge} {
		got, err := ParsePreset(in)
		if err != nil || got != want {
			t.Fatalf("ParsePreset(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePreset("huge"); err == nil {
		t.Fatalf("expected error")
	}
	opt, err := Options{Preset: PresetCompact}.normalize("x.PNG")
	if err != nil || opt.Columns != 6 || opt.ThumbPx != 160 || opt.Format != FormatPNG {
		t.Fatalf("normalize = %+v, %v", opt, err)
	}
}
