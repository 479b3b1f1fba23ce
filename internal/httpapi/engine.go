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
	"promptstudio/internal/orchestrator"
	"promptstudio/internal/search"
	"promptstudio/internal/telemetry"
)

type generateResponse struct {
	orchestrator.Outcome
	NoResults bool `json:"no_results"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Orch.Generate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, generateResponse{Outcome: out, NoResults: errors.Is(out.Err, domain.ErrNoResults)})
}

func (h *Handler) handleShuffle(w http.ResponseWriter, r *http.Request) {
	c, err := collectionParam(r, "field")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !c.Randomizable() {
		h.writeError(w, r, fmt.Errorf("%w: %q cannot be shuffled", errBadRequest, c))
		return
	}
	tag, err := h.app.Orch.Shuffle(r.Context(), c)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"field": c, "tag": tag})
}

func (h *Handler) handleClip(w http.ResponseWriter, r *http.Request) {
	clip, ok := h.app.Orch.LastClip()
	h.writeJSON(w, http.StatusOK, map[string]any{"clip": clip, "ok": ok, "busy": h.app.Orch.Busy()})
}

type galleryResponse struct {
	Images   []domain.GalleryImage `json:"images"`
	Filtered bool                  `json:"filtered"`
}

func (h *Handler) galleryView() galleryResponse {
	return galleryResponse{Images: h.app.Gallery.Visible(), Filtered: h.app.Gallery.Filtered()}
}

func (h *Handler) handleGallery(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.galleryView())
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Gallery.Reload(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.galleryView())
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	title := r.PathValue("title")
	err := h.app.Gallery.RemoveTitle(r.Context(), title)
	telemetry.Event(telemetry.EventDelete, map[string]any{"ok": err == nil})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.galleryView())
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Character []string `json:"character"`
		Artist    []string `json:"artist"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	_, err := h.app.Search.Apply(r.Context(), body.Character, body.Artist)
	telemetry.Event(telemetry.EventSearch, map[string]any{"ok": err == nil})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.galleryView())
}

func (h *Handler) handleSearchReset(w http.ResponseWriter, r *http.Request) {
	h.app.Search.Reset()
	h.writeJSON(w, http.StatusOK, h.galleryView())
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	if c, ok := domain.ParseCollection(field); ok {
		field = c.RemoteField()
	}
	got, err := h.app.Backend.SuggestTags(r.Context(), field, search.Sanitize(r.URL.Query().Get("q")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tags": got})
}
