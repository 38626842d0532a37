/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report file plus a best-effort
// autosave of the current deck, then exits non-zero.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"framedeck/internal/domain"
	applog "framedeck/internal/log"
	"framedeck/internal/telemetry"
	"framedeck/internal/version"
)

// exitFn is swapped in tests so Recover does not terminate the test process.
var exitFn = os.Exit

// DeckState describes what Recover should autosave. The callback runs inside
// panic handling and must not itself panic; returning ok=false skips the
// autosave.
type DeckState func() (key domain.PresentationKey, slides []domain.Slide, ok bool)

// Recover captures a panic, logs it with the stack, writes a crash report,
// and autosaves the deck when state is available.
//
// Usage: defer crash.Recover(stateFn)
func Recover(state DeckState) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(r, stack)
		if state != nil {
			if key, slides, ok := state(); ok {
				if path, err := autosaveDeck(key, slides); err != nil {
					l.Error("deck autosave failed", slog.Any("err", err))
				} else {
					l.Info("deck autosave written", slog.String("path", path))
				}
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// reportDir is where crash artifacts land. Overridable with FDK_CRASH_DIR.
func reportDir() string {
	if d := os.Getenv("FDK_CRASH_DIR"); d != "" {
		_ = os.MkdirAll(d, 0o755)
		return d
	}
	return os.TempDir()
}

func writeReport(panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(), fmt.Sprintf("framedeck-crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "framedeck Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// autosaveDeck dumps the in-memory slide list as JSON so an unsaved reorder
// survives the crash.
func autosaveDeck(key domain.PresentationKey, slides []domain.Slide) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(), fmt.Sprintf("framedeck-deck-%s.json", stamp))
	payload := struct {
		Presentation string         `json:"presentation"`
		SavedAt      string         `json:"savedAt"`
		Slides       []domain.Slide `json:"slides"`
	}{
		Presentation: key.StorageKey(),
		SavedAt:      time.Now().UTC().Format(time.RFC3339),
		Slides:       slides,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return path, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, err
	}
	return path, nil
}
