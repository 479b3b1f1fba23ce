/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"promptstudio/internal/domain"
)

const generatePath = "/generate-image/"

// Generate submits one generation request and returns the produced artifact
// identifiers in arrival order. An empty slice is a successful run without output.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) ([]string, error) {
	if req.CharacterTags == nil {
		req.CharacterTags = []string{}
	}
	if req.ArtistTags == nil {
		req.ArtistTags = []string{}
	}
	data, err := c.do(ctx, http.MethodPost, generatePath, req)
	if err != nil {
		return nil, err
	}
	ids, err := normalizeIdentifiers(data)
	if err != nil {
		return nil, remoteErr(http.MethodPost, generatePath, err)
	}
	return ids, nil
}

var errShape = errors.New("unrecognized generation response")

// normalizeIdentifiers accepts {"titles": [...]}, {"saved_files": [...]} or a
// bare array of strings.
func normalizeIdentifiers(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errShape
	}
	var list []string
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", errShape, err)
		}
		return nonNil(list), nil
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errShape, err)
	}
	for _, key := range []string{"titles", "saved_files"} {
		raw, ok := env[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errShape, key, err)
		}
		return nonNil(list), nil
	}
	return nil, errShape
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
