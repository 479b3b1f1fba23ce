/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package orchestrator runs one generation: toggle resolution, composition,
// the remote request and ingestion of the produced images. At most one run is
// in flight; triggers arriving meanwhile are dropped.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
	"promptstudio/internal/prompt"
	"promptstudio/internal/tags"
	"promptstudio/internal/telemetry"
)

// ErrBusy is returned when a generation is already running.
var ErrBusy = errors.New("generation already in progress")

// TagSource is the tag state the orchestrator reads and writes back.
type TagSource interface {
	Snapshot() tags.Snapshot
	Set(ctx context.Context, name domain.Collection, tc domain.TagCollection) error
}

type Resolver interface {
	Resolve(ctx context.Context, field domain.Collection) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]string, error)
}

type Gallery interface {
	AppendIdentifiers(ids ...string) []domain.GalleryImage
}

// Events receives anonymous outcome events; *telemetry.Client satisfies it.
type Events interface {
	Event(name string, props map[string]any)
}

// Outcome describes one finished run. Err is domain.ErrNoResults for a run
// that succeeded without artifacts, and the failure otherwise.
type Outcome struct {
	RunID         string                       `json:"run_id"`
	Clip          domain.Clip                  `json:"clip"`
	Resolved      map[domain.Collection]string `json:"resolved,omitempty"`
	ResolveErrors map[domain.Collection]string `json:"resolve_errors,omitempty"`
	Images        []domain.GalleryImage        `json:"images"`
	Took          time.Duration                `json:"took"`
	Err           error                        `json:"-"`
}

type Option func(*Orchestrator)

// WithEvents overrides the telemetry sink.
func WithEvents(e Events) Option { return func(o *Orchestrator) { o.events = e } }

type Orchestrator struct {
	tags     TagSource
	resolver Resolver
	gen      Generator
	gallery  Gallery
	events   Events
	log      *slog.Logger

	busy atomic.Bool

	mu      sync.RWMutex
	last    domain.Clip
	hasLast bool
}

func New(t TagSource, r Resolver, g Generator, gal Gallery, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tags:     t,
		resolver: r,
		gen:      g,
		gallery:  gal,
		events:   telemetry.Default(),
		log:      applog.WithComponent("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether a generation is running.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

// LastClip returns the clip of the last successful generation.
func (o *Orchestrator) LastClip() (domain.Clip, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last, o.hasLast
}

// Generate performs one run. It returns ErrBusy without side effects when a
// run is already in progress. A failed request leaves the gallery untouched
// and is not retried. An empty result is not an error: the returned error is
// nil and Outcome.Err is domain.ErrNoResults.
func (o *Orchestrator) Generate(ctx context.Context) (Outcome, error) {
	if !o.busy.CompareAndSwap(false, true) {
		o.log.DebugContext(ctx, "generate dropped, busy")
		return Outcome{}, ErrBusy
	}
	defer o.busy.Store(false)

	start := time.Now()
	out := Outcome{RunID: uuid.NewString()}
	ctx = applog.ContextWith(ctx, slog.String("run", out.RunID))
	l := applog.WithOperation(o.log, "generate")

	snap := o.tags.Snapshot()
	o.resolveToggled(ctx, l, snap, &out)

	out.Clip = prompt.Compose(snap)
	req := domain.GenerationRequest{
		PositiveClip:  out.Clip.Positive,
		NegativeClip:  out.Clip.Negative,
		CharacterTags: []string(snap.Get(domain.Character).Clone()),
		ArtistTags:    []string(snap.Get(domain.Artist).Clone()),
	}
	l.InfoContext(ctx, "submitting", slog.Int("positive_len", len(req.PositiveClip)), slog.Int("negative_len", len(req.NegativeClip)))

	ids, err := o.gen.Generate(ctx, req)
	out.Took = time.Since(start)
	if err != nil {
		out.Err = err
		l.ErrorContext(ctx, "generation failed", slog.Any("err", err), slog.Duration("took", out.Took))
		o.emit(telemetry.EventGenerate, "error", &out)
		return out, err
	}

	o.mu.Lock()
	o.last, o.hasLast = out.Clip, true
	o.mu.Unlock()

	if len(ids) == 0 {
		out.Err = domain.ErrNoResults
		out.Images = []domain.GalleryImage{}
		l.InfoContext(ctx, "generation produced no images", slog.Duration("took", out.Took))
		o.emit(telemetry.EventGenerate, "empty", &out)
		return out, nil
	}
	out.Images = o.gallery.AppendIdentifiers(ids...)
	l.InfoContext(ctx, "generation done", slog.Int("images", len(out.Images)), slog.Duration("took", out.Took))
	o.emit(telemetry.EventGenerate, "ok", &out)
	return out, nil
}

// resolveToggled replaces every toggled field in snap with its resolved tag
// and persists it. A field that fails to resolve keeps its value.
func (o *Orchestrator) resolveToggled(ctx context.Context, l *slog.Logger, snap tags.Snapshot, out *Outcome) {
	for _, f := range domain.RandomFields {
		if !snap.Toggle(f) {
			continue
		}
		tag, err := o.resolver.Resolve(ctx, f)
		if err != nil {
			if out.ResolveErrors == nil {
				out.ResolveErrors = map[domain.Collection]string{}
			}
			out.ResolveErrors[f] = err.Error()
			l.WarnContext(ctx, "keeping previous tags", slog.String("field", string(f)), slog.Any("err", err))
			continue
		}
		tc := domain.TagCollection{tag}
		snap.Tags[f] = tc
		if out.Resolved == nil {
			out.Resolved = map[domain.Collection]string{}
		}
		out.Resolved[f] = tag
		if err := o.tags.Set(ctx, f, tc); err != nil {
			l.WarnContext(ctx, "persist resolved tag failed", slog.String("field", string(f)), slog.Any("err", err))
		}
	}
}

// Shuffle resolves field outside the generation cycle and stores the result.
// On failure nothing changes.
func (o *Orchestrator) Shuffle(ctx context.Context, field domain.Collection) (string, error) {
	l := applog.WithOperation(o.log, "shuffle")
	tag, err := o.resolver.Resolve(ctx, field)
	if err != nil {
		l.WarnContext(ctx, "shuffle failed", slog.String("field", string(field)), slog.Any("err", err))
		o.emitShuffle(field, false)
		return "", err
	}
	if err := o.tags.Set(ctx, field, domain.TagCollection{tag}); err != nil {
		l.ErrorContext(ctx, "persist shuffled tag failed", slog.String("field", string(field)), slog.Any("err", err))
		o.emitShuffle(field, false)
		return "", err
	}
	l.InfoContext(ctx, "shuffled", slog.String("field", string(field)), slog.String("tag", tag))
	o.emitShuffle(field, true)
	return tag, nil
}

func (o *Orchestrator) emit(name, outcome string, out *Outcome) {
	if o.events == nil {
		return
	}
	o.events.Event(name, map[string]any{
		"outcome":    outcome,
		"images":     len(out.Images),
		"randomized": len(out.Resolved),
		"took_ms":    out.Took.Milliseconds(),
	})
}

func (o *Orchestrator) emitShuffle(field domain.Collection, ok bool) {
	if o.events == nil {
		return
	}
	o.events.Event(telemetry.EventShuffle, map[string]any{"field": string(field), "ok": ok})
}
