/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps bounded per-key edit histories. Each entry is the value a key
// held before an edit; Undo swaps it with the current value and Redo swaps back.
package undo

import (
	"sync"
	"time"
)

// Entry is a prior value of one key. Size is estimated as len(Value).
type Entry struct {
	Key   string
	Value []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries across all keys are pruned when exceeded.
	MaxBytes int
	// MaxPerKey limits entries kept per key (0 means unlimited).
	MaxPerKey int
	// MinInterval merges edits to the same key made within the interval, so a burst
	// of edits undoes in one step back to the value before the burst.
	MinInterval time.Duration
}

// History is safe for concurrent use.
type History struct {
	cfg        Config
	mu         sync.Mutex
	undo       map[string][]Entry
	redo       map[string][]Entry
	lastEdit   map[string]time.Time
	totalBytes int
}

func New(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &History{
		cfg:      cfg,
		undo:     make(map[string][]Entry),
		redo:     make(map[string][]Entry),
		lastEdit: make(map[string]time.Time),
	}
}

// Record notes that key is about to change away from prev at time ts.
// Any redo entries for key are discarded.
func (h *History) Record(key string, prev []byte, ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropRedoLocked(key)
	last, seen := h.lastEdit[key]
	h.lastEdit[key] = ts
	if seen && h.cfg.MinInterval > 0 && ts.Sub(last) < h.cfg.MinInterval && len(h.undo[key]) > 0 {
		return
	}
	h.undo[key] = append(h.undo[key], Entry{Key: key, Value: append([]byte(nil), prev...), TS: ts})
	h.totalBytes += len(prev)
	h.enforceCapsLocked(key)
}

// Undo returns the value key held before its latest edit and remembers current for Redo.
func (h *History) Undo(key string, current []byte) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stack := h.undo[key]
	if len(stack) == 0 {
		return Entry{}, false
	}
	e := stack[len(stack)-1]
	h.undo[key] = stack[:len(stack)-1]
	h.totalBytes -= len(e.Value)
	h.redo[key] = append(h.redo[key], Entry{Key: key, Value: append([]byte(nil), current...), TS: time.Now()})
	h.totalBytes += len(current)
	delete(h.lastEdit, key)
	h.enforceCapsLocked(key)
	return e, true
}

// Redo reverses the latest Undo of key.
func (h *History) Redo(key string, current []byte) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.redo[key]
	if len(r) == 0 {
		return Entry{}, false
	}
	e := r[len(r)-1]
	h.redo[key] = r[:len(r)-1]
	h.totalBytes -= len(e.Value)
	h.undo[key] = append(h.undo[key], Entry{Key: key, Value: append([]byte(nil), current...), TS: time.Now()})
	h.totalBytes += len(current)
	delete(h.lastEdit, key)
	h.enforceCapsLocked(key)
	return e, true
}

// Clear drops all history for key.
func (h *History) Clear(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.undo[key] {
		h.totalBytes -= len(e.Value)
	}
	h.dropRedoLocked(key)
	delete(h.undo, key)
	delete(h.lastEdit, key)
	if h.totalBytes < 0 {
		h.totalBytes = 0
	}
}

// Depth returns how many undo and redo steps key has.
func (h *History) Depth(key string) (undo, redo int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo[key]), len(h.redo[key])
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes int, keys int, entries int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.undo {
		if len(v) > 0 {
			keys++
		}
		entries += len(v)
	}
	return h.totalBytes, keys, entries
}

func (h *History) dropRedoLocked(key string) {
	for _, e := range h.redo[key] {
		h.totalBytes -= len(e.Value)
	}
	delete(h.redo, key)
}

func (h *History) enforceCapsLocked(key string) {
	if h.cfg.MaxPerKey > 0 {
		for _, m := range []map[string][]Entry{h.undo, h.redo} {
			stack := m[key]
			if extra := len(stack) - h.cfg.MaxPerKey; extra > 0 {
				for i := 0; i < extra; i++ {
					h.totalBytes -= len(stack[i].Value)
				}
				m[key] = append([]Entry(nil), stack[extra:]...)
			}
		}
	}
	// prune the oldest undo entry across all keys until under the byte cap
	for h.totalBytes > h.cfg.MaxBytes {
		oldestKey := ""
		var oldestTS time.Time
		for k, stack := range h.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestKey == "" || stack[0].TS.Before(oldestTS) {
				oldestKey = k
				oldestTS = stack[0].TS
			}
		}
		if oldestKey == "" {
			break
		}
		stack := h.undo[oldestKey]
		h.totalBytes -= len(stack[0].Value)
		h.undo[oldestKey] = stack[1:]
		if len(h.undo[oldestKey]) == 0 {
			delete(h.undo, oldestKey)
		}
	}
}
