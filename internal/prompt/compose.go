/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package prompt derives the positive and negative prompt strings from tag collections.
package prompt

import (
	"strings"

	"promptstudio/internal/domain"
	"promptstudio/internal/tags"
)

// Separator joins tags within a clip.
const Separator = ", "

// Compose is pure: the same snapshot always yields the same clip.
// Empty collections and blank tags contribute nothing.
func Compose(snap tags.Snapshot) domain.Clip {
	return domain.Clip{
		Positive: Join(snap, domain.PositiveOrder...),
		Negative: Join(snap, domain.NegativeOrder...),
	}
}

// Join concatenates the given collections of snap in order.
func Join(snap tags.Snapshot, order ...domain.Collection) string {
	var parts []string
	for _, c := range order {
		for _, t := range snap.Get(c) {
			if t = strings.TrimSpace(t); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, Separator)
}
