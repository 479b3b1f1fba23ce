/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Command promptstudio composes prompts from tag collections, triggers image
// generation on the backend and manages the resulting gallery.
package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"

	"promptstudio/internal/config"
	"promptstudio/internal/crash"
	"promptstudio/internal/version"
)

func main() {
	s := &session{}
	dir, _ := config.Dir()
	defer crash.Recover(dir, s)
	defer s.close()

	root := newRootCmd(s)
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version.String()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		s.close()
		os.Exit(1)
	}
}
