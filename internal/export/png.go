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
	"fmt"
	"image"
	stddraw "image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	pngGap    = 12
	pngLabelH = 18
	pngHeadH  = 28
)

// writePNG lays the cells out on one raster canvas: a title line, then a grid
// of ThumbPx cells, each with its title underneath.
func writePNG(cells []cell, outPath string, opt Options) error {
	cols := min(opt.Columns, len(cells))
	rows := (len(cells) + cols - 1) / cols
	cw := opt.ThumbPx
	ch := opt.ThumbPx + pngLabelH
	w := pngGap + cols*(cw+pngGap)
	h := pngHeadH + pngGap + rows*(ch+pngGap)

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	fillBackground(canvas, white)
	face := basicfont.Face7x13
	drawLabel(canvas, face, opt.Title, pngGap, pngGap+face.Metrics().Ascent.Round(), w-2*pngGap)

	for i, c := range cells {
		x := pngGap + (i%cols)*(cw+pngGap)
		y := pngHeadH + pngGap + (i/cols)*(ch+pngGap)
		pb := c.pic.Bounds()
		// center inside the square cell
		ox := x + (cw-pb.Dx())/2
		oy := y + (opt.ThumbPx-pb.Dy())/2
		stddraw.Draw(canvas, image.Rect(ox, oy, ox+pb.Dx(), oy+pb.Dy()), c.pic, pb.Min, stddraw.Over)
		strokeRect(canvas, x-1, y-1, x+cw, y+opt.ThumbPx, gray)
		drawLabel(canvas, face, c.img.Title, x, y+opt.ThumbPx+face.Metrics().Ascent.Round()+2, cw)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, canvas); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

// drawLabel draws s at baseline y, truncated with "..." to maxW pixels.
func drawLabel(dst *image.RGBA, face font.Face, s string, x, y, maxW int) {
	d := &font.Drawer{Dst: dst, Src: image.Black, Face: face}
	s = truncate(d, s, maxW)
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func truncate(d *font.Drawer, s string, maxW int) string {
	if d.MeasureString(s).Round() <= maxW {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if t := string(r) + "..."; d.MeasureString(t).Round() <= maxW {
			return t
		}
	}
	return ""
}
