/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package resolver picks a random tag for a randomizable collection.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"promptstudio/internal/backend"
	"promptstudio/internal/domain"
	applog "promptstudio/internal/log"
)

// Source is the remote side of a resolution; *backend.Client satisfies it.
type Source interface {
	RandomTag(ctx context.Context, field string) (backend.TagCount, error)
}

// Resolver turns one randomizable field into a single tag.
type Resolver struct {
	src Source
	log *slog.Logger
}

func New(src Source) *Resolver {
	return &Resolver{src: src, log: applog.WithComponent("resolver")}
}

// Resolve makes exactly one remote call. Any failure, including a blank tag,
// is reported as domain.ErrRemoteUnavailable.
func (r *Resolver) Resolve(ctx context.Context, field domain.Collection) (string, error) {
	if !field.Randomizable() {
		return "", fmt.Errorf("resolver: %q cannot be randomized", field)
	}
	tc, err := r.src.RandomTag(ctx, field.RemoteField())
	if err != nil {
		if !errors.Is(err, domain.ErrRemoteUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, err)
		}
		r.log.WarnContext(ctx, "random tag failed", slog.String("field", string(field)), slog.Any("err", err))
		return "", err
	}
	tag := strings.TrimSpace(tc.Tag)
	if tag == "" {
		err := fmt.Errorf("%w: empty random tag for %s", domain.ErrRemoteUnavailable, field)
		r.log.WarnContext(ctx, "random tag failed", slog.String("field", string(field)), slog.Any("err", err))
		return "", err
	}
	r.log.DebugContext(ctx, "random tag", slog.String("field", string(field)), slog.String("tag", tag))
	return tag, nil
}
