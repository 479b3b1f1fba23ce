/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"promptstudio/internal/domain"
	"promptstudio/internal/tags"
)

func collectionParam(r *http.Request, key string) (domain.Collection, error) {
	c, ok := domain.ParseCollection(r.PathValue(key))
	if !ok {
		return "", fmt.Errorf("%w: %q", tags.ErrUnknownCollection, r.PathValue(key))
	}
	return c, nil
}

type tagsResponse struct {
	Name domain.Collection    `json:"name"`
	Tags domain.TagCollection `json:"tags"`
	Undo int                  `json:"undo"`
	Redo int                  `json:"redo"`
}

func (h *Handler) tagsResponse(c domain.Collection) (tagsResponse, error) {
	tc, err := h.app.Tags.Get(c)
	if err != nil {
		return tagsResponse{}, err
	}
	u, rd := h.app.Tags.CanUndo(c)
	return tagsResponse{Name: c, Tags: tc, Undo: u, Redo: rd}, nil
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.app.Tags.Snapshot())
}

func (h *Handler) handleGetTags(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r, "name")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.tagsResponse(c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutTags(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r, "name")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		Tags *[]string `json:"tags"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Tags == nil {
		h.writeError(w, r, fmt.Errorf("%w: missing tags", errBadRequest))
		return
	}
	if err := h.app.Tags.Set(r.Context(), c, domain.TagCollection(*body.Tags)); err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, _ := h.tagsResponse(c)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) { h.step(w, r, true) }
func (h *Handler) handleRedo(w http.ResponseWriter, r *http.Request) { h.step(w, r, false) }

func (h *Handler) step(w http.ResponseWriter, r *http.Request, undo bool) {
	c, err := collectionParam(r, "name")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var changed bool
	if undo {
		_, changed, err = h.app.Tags.Undo(r.Context(), c)
	} else {
		_, changed, err = h.app.Tags.Redo(r.Context(), c)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, _ := h.tagsResponse(c)
	h.writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "collection": resp})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Tags.Reset(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.app.Tags.Snapshot())
}

func (h *Handler) handleGetToggle(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r, "field")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !c.Randomizable() {
		h.writeError(w, r, fmt.Errorf("%w: %q", tags.ErrNotRandomizable, c))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"field": c, "on": h.app.Tags.Toggle(c)})
}

func (h *Handler) handlePutToggle(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r, "field")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var body struct {
		On *bool `json:"on"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.On == nil {
		h.writeError(w, r, errors.Join(errBadRequest, errors.New("missing on")))
		return
	}
	if err := h.app.Tags.SetToggle(r.Context(), c, *body.On); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"field": c, "on": *body.On})
}
