/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage implements the durable per-key state behind the tag collections.
// Values are opaque strings (JSON documents in practice); callers decide how to parse them.
// The default backend is an embedded SQLite file in WAL mode with versioned schema and
// automatic rebuild on corruption. A Postgres backend lets several hosts share state,
// and Memory serves tests and throwaway sessions.
package storage
