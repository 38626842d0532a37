/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framedeck/internal/domain"
)

func TestWriteReportCreatesFile(t *testing.T) {
	t.Setenv("FDK_CRASH_DIR", t.TempDir())
	path, err := writeReport("boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "framedeck Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestRecoverWritesReportAndDeckAutosave(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FDK_CRASH_DIR", dir)

	// Capture stderr to keep test output clean.
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	exitCode := 0
	oldExit := exitFn
	exitFn = func(code int) { exitCode = code }
	defer func() { exitFn = oldExit }()

	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}
	slides := domain.SlidesFromIDs([]string{"f1", "f2"})
	state := func() (domain.PresentationKey, []domain.Slide, bool) {
		return key, slides, true
	}

	func() {
		defer Recover(state)
		panic("boom")
	}()

	if exitCode != 2 {
		t.Fatalf("want exit code 2, got %d", exitCode)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read crash dir: %v", err)
	}
	var report, autosave string
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "framedeck-crash-"):
			report = filepath.Join(dir, e.Name())
		case strings.HasPrefix(e.Name(), "framedeck-deck-"):
			autosave = filepath.Join(dir, e.Name())
		}
	}
	if report == "" {
		t.Fatalf("crash report missing: %v", entries)
	}
	if autosave == "" {
		t.Fatalf("deck autosave missing: %v", entries)
	}

	data, err := os.ReadFile(autosave)
	if err != nil {
		t.Fatalf("read autosave: %v", err)
	}
	var payload struct {
		Presentation string         `json:"presentation"`
		Slides       []domain.Slide `json:"slides"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("autosave not valid JSON: %v", err)
	}
	if payload.Presentation != key.StorageKey() || len(payload.Slides) != 2 {
		t.Fatalf("autosave content wrong: %+v", payload)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	oldExit := exitFn
	called := false
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(nil)
	}()
	if called {
		t.Fatalf("Recover must not exit without a panic")
	}
}
