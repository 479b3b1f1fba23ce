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
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"promptstudio/internal/version"
)

// Page geometry in points (A4 portrait).
const (
	pageW     = 595.28
	pageH     = 841.89
	margin    = 36.0
	gap       = 10.0
	labelH    = 12.0
	titleSize = 14.0
)

// writePDF lays the cells out on as many A4 pages as needed. The first page
// carries the title and, when set, the positive and negative prompt.
func writePDF(cells []cell, outPath string, opt Options) error {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(opt.Title, true)
	pdf.SetAuthor("Prompt Studio", false)
	pdf.SetCreator("promptstudio "+version.String(), false)
	pdf.SetCreationDate(time.Now())
	pdf.SetAutoPageBreak(false, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	cols := opt.Columns
	cellW := (pageW - 2*margin - float64(cols-1)*gap) / float64(cols)
	rowH := cellW + labelH + gap

	pdf.AddPage()
	y := header(pdf, tr, opt)
	for i, c := range cells {
		col := i % cols
		if col == 0 && i > 0 {
			y += rowH
		}
		if y+cellW+labelH > pageH-margin {
			pdf.AddPage()
			y = margin
		}
		x := margin + float64(col)*(cellW+gap)

		data, err := encodePNG(c.pic)
		if err != nil {
			return err
		}
		name := "img" + strconv.Itoa(i)
		iopt := gofpdf.ImageOptions{ImageType: "PNG"}
		info := pdf.RegisterImageOptionsReader(name, iopt, bytes.NewReader(data))
		if info != nil {
			w, h := fitBox(info.Width(), info.Height(), cellW, cellW)
			pdf.ImageOptions(name, x+(cellW-w)/2, y+(cellW-h)/2, w, h, false, iopt, 0, "")
		}
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetLineWidth(0.5)
		pdf.Rect(x, y, cellW, cellW, "D")

		pdf.SetFont("Helvetica", "", 8)
		pdf.SetXY(x, y+cellW+1)
		pdf.CellFormat(cellW, labelH-2, clipText(pdf, tr(c.img.Title), cellW), "", 0, "C", false, 0, "")
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// header writes title, date and prompt lines and returns the y where the grid starts.
func header(pdf *gofpdf.Fpdf, tr func(string) string, opt Options) float64 {
	w := pageW - 2*margin
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.SetXY(margin, margin)
	pdf.CellFormat(w, titleSize+4, tr(opt.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetX(margin)
	pdf.CellFormat(w, 10, time.Now().Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	if opt.Clip != nil {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetX(margin)
		pdf.CellFormat(w, 10, "Positive", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetX(margin)
		pdf.MultiCell(w, 10, tr(opt.Clip.Positive), "", "L", false)
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetX(margin)
		pdf.CellFormat(w, 10, "Negative", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetX(margin)
		pdf.MultiCell(w, 10, tr(opt.Clip.Negative), "", "L", false)
	}
	return pdf.GetY() + gap
}

// fitBox scales w x h into a bw x bh box keeping the aspect ratio.
func fitBox(w, h, bw, bh float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return bw, bh
	}
	s := min(bw/w, bh/h)
	return w * s, h * s
}

// clipText shortens s with "..." to fit width in the current font.
func clipText(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		if t := string(r) + "..."; pdf.GetStringWidth(t) <= width {
			return t
		}
	}
	return ""
}
