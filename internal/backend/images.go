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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ImageEntry is one gallery item as listed by the backend. Paths are
// backend-relative ("/images/a.png"); Thumbnail is nil when none exists.
type ImageEntry struct {
	Original  string  `json:"original"`
	Thumbnail *string `json:"thumbnail"`
	Title     string  `json:"title"`
}

// ImageQuery filters the image listing. Each value is a space-joined tag list;
// empty values are not sent.
type ImageQuery struct {
	Character string
	Artist    string
}

// Encode renders the query string without the leading '?'.
func (q ImageQuery) Encode() string {
	v := url.Values{}
	if s := strings.TrimSpace(q.Character); s != "" {
		v.Set("character", s)
	}
	if s := strings.TrimSpace(q.Artist); s != "" {
		v.Set("artist", s)
	}
	return v.Encode()
}

var imageListSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["images"],
  "properties": {
    "images": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["original"],
        "properties": {
          "original":  {"type": "string", "minLength": 1},
          "thumbnail": {"type": ["string", "null"]},
          "title":     {"type": ["string", "null"]}
        }
      }
    }
  }
}`)

// ListImages returns the server's image list, optionally filtered.
func (c *Client) ListImages(ctx context.Context, q ImageQuery) ([]ImageEntry, error) {
	path := "/images/"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	res, err := gojsonschema.Validate(imageListSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, remoteErr(http.MethodGet, path, fmt.Errorf("decode: %w", err))
	}
	if !res.Valid() {
		return nil, remoteErr(http.MethodGet, path, fmt.Errorf("unexpected payload: %s", res.Errors()[0]))
	}
	var env struct {
		Images []ImageEntry `json:"images"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, remoteErr(http.MethodGet, path, fmt.Errorf("decode: %w", err))
	}
	if env.Images == nil {
		env.Images = []ImageEntry{}
	}
	return env.Images, nil
}

// DeleteImage removes one stored image by file name ("a_b_0.png").
func (c *Client) DeleteImage(ctx context.Context, filename string) error {
	name := strings.TrimSpace(filename)
	if name == "" {
		return fmt.Errorf("backend: empty file name")
	}
	return c.doJSON(ctx, http.MethodDelete, "/images/"+url.PathEscape(name), nil, nil)
}
