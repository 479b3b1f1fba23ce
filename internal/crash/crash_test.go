/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeProfiler struct {
	path string
	err  error
}

func (f *fakeProfiler) ExportProfile(path string) error {
	f.path = path
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(path, []byte(`{"version":1}`), 0o644)
}

func intercept(t *testing.T) (*int, *bytes.Buffer) {
	t.Helper()
	code := -1
	var out bytes.Buffer
	oldExit, oldErr := exitFn, stderr
	exitFn = func(c int) { code = c }
	stderr = &out
	t.Cleanup(func() { exitFn, stderr = oldExit, oldErr })
	return &code, &out
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path, err := writeReport(dir, "20250101-000000", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path = %s, want under %s", path, dir)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Prompt Studio Crash Report") || !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestRecoverWritesReportAndProfile(t *testing.T) {
	code, out := intercept(t)
	state := t.TempDir()
	p := &fakeProfiler{}

	func() {
		defer Recover(state, p)
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	dir := filepath.Join(state, DirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read crash dir: %v", err)
	}
	var report string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log") {
			report = filepath.Join(dir, e.Name())
		}
	}
	if report == "" {
		t.Fatalf("no crash report in %s", dir)
	}
	if b, _ := os.ReadFile(report); !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", b)
	}
	if filepath.Dir(p.path) != dir || !strings.HasPrefix(filepath.Base(p.path), "tags-") {
		t.Fatalf("profile path = %q", p.path)
	}
	if !strings.Contains(out.String(), report) {
		t.Fatalf("stderr does not mention report: %q", out.String())
	}
}

func TestRecoverProfileFailureStillExits(t *testing.T) {
	code, _ := intercept(t)
	func() {
		defer Recover(t.TempDir(), &fakeProfiler{err: errors.New("disk full")})
		panic("again")
	}()
	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	code, out := intercept(t)
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if *code != -1 || out.Len() != 0 {
		t.Fatalf("unexpected exit %d / output %q", *code, out.String())
	}
}
