/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package httpapi exposes the engine as a small local JSON API for a browser
// front-end.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"promptstudio/internal/app"
	"promptstudio/internal/domain"
	"promptstudio/internal/gallery"
	applog "promptstudio/internal/log"
	"promptstudio/internal/orchestrator"
	"promptstudio/internal/tags"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

type Handler struct {
	app *app.App
	log *slog.Logger
}

func New(a *app.App) *Handler {
	return &Handler{app: a, log: applog.WithComponent("httpapi")}
}

// Routes returns the API mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			h.log.Error("Unable to write healthcheck", slog.Any("err", err))
		}
	})
	mux.HandleFunc("GET /api/tags", h.handleSnapshot)
	mux.HandleFunc("POST /api/tags/reset", h.handleReset)
	mux.HandleFunc("GET /api/tags/{name}", h.handleGetTags)
	mux.HandleFunc("PUT /api/tags/{name}", h.handlePutTags)
	mux.HandleFunc("POST /api/tags/{name}/undo", h.handleUndo)
	mux.HandleFunc("POST /api/tags/{name}/redo", h.handleRedo)
	mux.HandleFunc("GET /api/toggles/{field}", h.handleGetToggle)
	mux.HandleFunc("PUT /api/toggles/{field}", h.handlePutToggle)
	mux.HandleFunc("GET /api/clip", h.handleClip)
	mux.HandleFunc("POST /api/generate", h.handleGenerate)
	mux.HandleFunc("POST /api/shuffle/{field}", h.handleShuffle)
	mux.HandleFunc("GET /api/gallery", h.handleGallery)
	mux.HandleFunc("POST /api/gallery/reload", h.handleReload)
	mux.HandleFunc("DELETE /api/gallery/{title}", h.handleDelete)
	mux.HandleFunc("POST /api/search", h.handleSearch)
	mux.HandleFunc("POST /api/search/reset", h.handleSearchReset)
	mux.HandleFunc("GET /api/suggest/{field}", h.handleSuggest)
	return h.withLogging(mux)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := applog.ContextWith(r.Context(), slog.String("req", uuid.NewString()))
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))
		h.log.DebugContext(ctx, "http", slog.String("method", r.Method), slog.String("path", r.URL.Path),
			slog.Int("status", sw.code), slog.Duration("took", time.Since(start)))
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Unable to encode JSON response", slog.Any("err", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		h.log.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	h.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, tags.ErrNotRandomizable):
		return http.StatusBadRequest
	case errors.Is(err, tags.ErrUnknownCollection), errors.Is(err, gallery.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
