/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tags

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"promptstudio/internal/domain"
)

// Persisted values are JSON documents; they are checked against these schemas
// before use so a hand-edited or truncated value falls back to the default.
var (
	tagListSchema = gojsonschema.NewStringLoader(`{
		"type": "array",
		"items": {"type": "string"}
	}`)
	toggleSchema = gojsonschema.NewStringLoader(`{"type": "boolean"}`)
)

func validate(schema gojsonschema.JSONLoader, raw string) error {
	res, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistedStateCorrupt, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", domain.ErrPersistedStateCorrupt, strings.Join(msgs, "; "))
	}
	return nil
}

func decodeTags(raw string) (domain.TagCollection, error) {
	if err := validate(tagListSchema, raw); err != nil {
		return nil, err
	}
	var tc domain.TagCollection
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistedStateCorrupt, err)
	}
	if tc == nil {
		tc = domain.TagCollection{}
	}
	return tc, nil
}

func encodeTags(tc domain.TagCollection) string {
	if tc == nil {
		tc = domain.TagCollection{}
	}
	b, _ := json.Marshal(tc)
	return string(b)
}

func decodeToggle(raw string) (bool, error) {
	if err := validate(toggleSchema, raw); err != nil {
		return false, err
	}
	return strings.TrimSpace(raw) == "true", nil
}

func encodeToggle(on bool) string {
	if on {
		return "true"
	}
	return "false"
}
