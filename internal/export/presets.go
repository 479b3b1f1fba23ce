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
	"path/filepath"
	"strings"

	"promptstudio/internal/domain"
)

// PresetName selects a contact-sheet layout.
type PresetName string

const (
	PresetCompact  PresetName = "compact"
	PresetStandard PresetName = "standard"
	PresetLarge    PresetName = "large"
)

// Format of the written sheet.
const (
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// Options controls a contact-sheet export. Zero fields take the preset's values.
//
// PathFor maps an image's display URL to what Source.Fetch expects; nil passes
// the URL through.
type Options struct {
	Preset  PresetName
	Format  string // pdf or png; empty means derive from the output extension
	Columns int
	ThumbPx int // pixel size of one raster cell
	Title   string
	Clip    *domain.Clip // printed under the title when set
	PathFor func(displayURL string) string
	Workers int
}

func presetColumns(p PresetName) int {
	switch p {
	case PresetCompact:
		return 6
	case PresetLarge:
		return 2
	default:
		return 4
	}
}

func presetThumbPx(p PresetName) int {
	switch p {
	case PresetCompact:
		return 160
	case PresetLarge:
		return 480
	default:
		return 256
	}
}

// ParsePreset accepts a preset name case-insensitively; empty means standard.
func ParsePreset(s string) (PresetName, error) {
	switch p := PresetName(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PresetStandard, nil
	case PresetCompact, PresetStandard, PresetLarge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown preset: %s", s)
	}
}

// normalize fills defaults and resolves the output format.
func (o Options) normalize(outPath string) (Options, error) {
	if o.Preset == "" {
		o.Preset = PresetStandard
	}
	if o.Columns <= 0 {
		o.Columns = presetColumns(o.Preset)
	}
	if o.ThumbPx <= 0 {
		o.ThumbPx = presetThumbPx(o.Preset)
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Title == "" {
		o.Title = "Prompt Studio gallery"
	}
	if o.PathFor == nil {
		o.PathFor = func(s string) string { return s }
	}
	f := strings.ToLower(strings.TrimSpace(o.Format))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
	}
	switch f {
	case FormatPDF, FormatPNG:
		o.Format = f
	default:
		return o, fmt.Errorf("unknown format: %q", f)
	}
	return o, nil
}
