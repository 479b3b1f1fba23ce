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
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrEmptySelection is returned before any request when a tag administration
// call names neither character nor artist tags.
var ErrEmptySelection = errors.New("no character or artist tags given")

// TagCount is one tag with its usage count. The backend sends count either as
// a number or as a numeric string.
type TagCount struct {
	Tag   string      `json:"tag"`
	Count json.Number `json:"count"`
}

// N returns the count as an integer, 0 when absent or not numeric.
func (t TagCount) N() int64 {
	n, err := t.Count.Int64()
	if err != nil {
		if f, ferr := t.Count.Float64(); ferr == nil {
			return int64(f)
		}
		return 0
	}
	return n
}

// TagSelection names tags in the character and artist tables.
type TagSelection struct {
	CharacterTags []string `json:"characterTags"`
	ArtistTags    []string `json:"artistTags"`
}

func (s TagSelection) empty() bool { return len(s.CharacterTags) == 0 && len(s.ArtistTags) == 0 }

func fieldPath(field string) (string, error) {
	f := strings.TrimSpace(field)
	if f == "" || strings.ContainsAny(f, "/?#") {
		return "", fmt.Errorf("backend: invalid tag field %q", field)
	}
	return "/tags/" + url.PathEscape(f), nil
}

// RandomTag asks the backend for one random tag of field ("character", "artist").
func (c *Client) RandomTag(ctx context.Context, field string) (TagCount, error) {
	p, err := fieldPath(field)
	if err != nil {
		return TagCount{}, err
	}
	var env struct {
		Tag *TagCount `json:"tag"`
	}
	if err := c.doJSON(ctx, http.MethodGet, p+"/random", nil, &env); err != nil {
		return TagCount{}, err
	}
	if env.Tag == nil {
		return TagCount{}, remoteErr(http.MethodGet, p+"/random", errors.New("missing tag"))
	}
	return *env.Tag, nil
}

// SuggestTags returns the most used tags of field matching the partial query.
func (c *Client) SuggestTags(ctx context.Context, field, q string) ([]TagCount, error) {
	p, err := fieldPath(field)
	if err != nil {
		return nil, err
	}
	p += "/"
	if s := strings.TrimSpace(q); s != "" {
		p += "?" + url.Values{"q": {s}}.Encode()
	}
	return c.tagList(ctx, p)
}

// DeletedTags lists the soft-deleted tags of the character or artist table.
func (c *Client) DeletedTags(ctx context.Context, field string) ([]TagCount, error) {
	f := strings.ToLower(strings.TrimSpace(field))
	if f != "character" && f != "artist" {
		return nil, fmt.Errorf("backend: no deleted-tag list for %q", field)
	}
	return c.tagList(ctx, "/tags/deleted-"+f)
}

func (c *Client) tagList(ctx context.Context, path string) ([]TagCount, error) {
	var env struct {
		Tags []TagCount `json:"tags"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	if env.Tags == nil {
		env.Tags = []TagCount{}
	}
	return env.Tags, nil
}

type messageEnvelope struct {
	Message string `json:"message"`
}

// RemoveTags moves the selected tags into the deleted tables.
func (c *Client) RemoveTags(ctx context.Context, sel TagSelection) (string, error) {
	return c.tagAdmin(ctx, "/remove-tags", sel)
}

// RestoreDeletedTags moves the selected tags back out of the deleted tables.
func (c *Client) RestoreDeletedTags(ctx context.Context, sel TagSelection) (string, error) {
	return c.tagAdmin(ctx, "/restore-deleted-tags", sel)
}

func (c *Client) tagAdmin(ctx context.Context, path string, sel TagSelection) (string, error) {
	if sel.empty() {
		return "", ErrEmptySelection
	}
	if sel.CharacterTags == nil {
		sel.CharacterTags = []string{}
	}
	if sel.ArtistTags == nil {
		sel.ArtistTags = []string{}
	}
	var msg messageEnvelope
	if err := c.doJSON(ctx, http.MethodPost, path, sel, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

// RestoreDatabase restores every deleted tag at once.
func (c *Client) RestoreDatabase(ctx context.Context) (string, error) {
	var msg messageEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/restore-database", nil, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}
