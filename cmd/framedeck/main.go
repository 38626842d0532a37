/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"framedeck/internal/config"
	"framedeck/internal/crash"
	"framedeck/internal/deck"
	"framedeck/internal/domain"
	"framedeck/internal/export"
	applog "framedeck/internal/log"
	"framedeck/internal/render"
	"framedeck/internal/scene"
	"framedeck/internal/store"
	"framedeck/internal/telemetry"
	"framedeck/internal/ui"
	"framedeck/internal/version"
)

func usage() {
	fmt.Println("framedeck — presentation decks from canvas frames")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  framedeck version|-v|--version                    Show version")
	fmt.Println("  framedeck sync <scene.json> [name]                 Reconcile the deck with the scene's frames")
	fmt.Println("  framedeck slides <scene.json> [name]               Print the deck in order")
	fmt.Println("  framedeck reorder <scene.json> <from> <to> [name]  Move a slide to a new position")
	fmt.Println("  framedeck export pdf|pptx <scene.json> [name]      Export the deck as a document")
	fmt.Println("  framedeck ui <scene.json> [name]                   Launch desktop UI (build with -tags fyne)")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
		cfg = config.Defaults()
	}
	telemetry.NewDefault(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))

	var (
		key    domain.PresentationKey
		slides []domain.Slide
	)
	defer crash.Recover(func() (domain.PresentationKey, []domain.Slide, bool) {
		return key, slides, len(slides) > 0
	})

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("framedeck — presentation decks from canvas frames")
		fmt.Println(version.String())
		return

	case "sync":
		scenePath, name := sceneArgs(args[2:])
		key = keyFor(scenePath, name)
		st := openStore(l)
		defer func() { _ = st.Close() }()

		ctx := context.Background()
		slides = loadDeck(ctx, l, st, key)
		snap := snapshot(l, scenePath)
		next, changed := deck.Reconcile(scene.FrameIDs(snap), slides)
		if !changed {
			fmt.Printf("Deck is up to date (%d slides).\n", len(slides))
			return
		}
		if err := st.ReplaceDeck(ctx, key, next); err != nil {
			fail(l, "persist deck", err)
		}
		slides = next
		fmt.Printf("Deck synced: %d slides.\n", len(slides))
		return

	case "slides":
		scenePath, name := sceneArgs(args[2:])
		key = keyFor(scenePath, name)
		st := openStore(l)
		defer func() { _ = st.Close() }()

		slides = loadDeck(context.Background(), l, st, key)
		if len(slides) == 0 {
			fmt.Println("Deck is empty. Run 'framedeck sync' first.")
			return
		}
		snap := snapshot(l, scenePath)
		for i, s := range slides {
			title := s.FrameID
			if frame, ok := scene.FrameByID(snap, s.FrameID); ok {
				title = frame.DisplayName()
			} else {
				title += " (missing from scene)"
			}
			fmt.Printf("%3d  %s\n", i+1, title)
		}
		return

	case "reorder":
		if len(args) < 5 {
			fmt.Println("reorder requires <scene.json> <from> <to>")
			usage()
			os.Exit(2)
		}
		scenePath := args[2]
		from, err1 := strconv.Atoi(args[3])
		to, err2 := strconv.Atoi(args[4])
		if err1 != nil || err2 != nil {
			fmt.Println("from and to must be 1-based slide numbers")
			os.Exit(2)
		}
		name := ""
		if len(args) > 5 {
			name = args[5]
		}
		key = keyFor(scenePath, name)
		st := openStore(l)
		defer func() { _ = st.Close() }()

		ctx := context.Background()
		slides = loadDeck(ctx, l, st, key)
		moved := deck.Move(domain.FrameIDs(slides), from-1, to-1)
		next := domain.SlidesFromIDs(moved)
		if err := st.ReplaceDeck(ctx, key, next); err != nil {
			fail(l, "persist deck", err)
		}
		slides = next
		fmt.Printf("Moved slide %d to position %d.\n", from, to)
		return

	case "export":
		if len(args) < 4 {
			fmt.Println("export requires pdf|pptx and <scene.json>")
			usage()
			os.Exit(2)
		}
		format := export.Format(strings.ToLower(args[2]))
		scenePath, name := sceneArgs(args[3:])
		key = keyFor(scenePath, name)
		st := openStore(l)
		defer func() { _ = st.Close() }()

		ctx := context.Background()
		slides = loadDeck(ctx, l, st, key)
		if len(slides) == 0 {
			fmt.Println("Deck is empty. Run 'framedeck sync' first.")
			os.Exit(1)
		}

		e := &export.Exporter{
			Provider: &scene.FileProvider{Path: scenePath},
			Ras:      render.Software{},
		}
		res, err := e.Export(ctx, format, export.Request{
			Key:    key,
			Slides: slides,
			OutDir: cfg.Export.OutDir,
			Options: export.Options{
				RasterWidth:         cfg.Export.RasterWidth,
				Dark:                cfg.Export.Dark,
				Background:          cfg.Export.Background,
				ViewBackgroundColor: cfg.Export.ViewBackgroundColor,
			},
		})
		if err != nil {
			fail(l, "export", err)
		}
		fmt.Printf("Exported %d slides to %s", res.SlideCount, res.Path)
		if res.Skipped > 0 {
			fmt.Printf(" (%d slides skipped: frame missing)", res.Skipped)
		}
		fmt.Println()
		return

	case "ui":
		scenePath, name := sceneArgs(args[2:])
		if err := ui.Run(scenePath, name); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
		return

	default:
		usage()
		os.Exit(2)
	}
}

// sceneArgs pulls the scene path and optional presentation name from rest,
// exiting with usage when the path is missing.
func sceneArgs(rest []string) (scenePath, name string) {
	if len(rest) < 1 {
		fmt.Println("a <scene.json> path is required")
		usage()
		os.Exit(2)
	}
	scenePath = rest[0]
	if len(rest) > 1 {
		name = rest[1]
	}
	return scenePath, name
}

func keyFor(scenePath, name string) domain.PresentationKey {
	canvasID := strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	return domain.PresentationKey{CanvasID: canvasID, Name: name}
}

func openStore(l *slog.Logger) *store.Store {
	path, err := store.DefaultPath()
	if err != nil {
		fail(l, "resolve store path", err)
	}
	st, err := store.Open(path)
	if err != nil {
		fail(l, "open store", err)
	}
	return st
}

func loadDeck(ctx context.Context, l *slog.Logger, st *store.Store, key domain.PresentationKey) []domain.Slide {
	slides, err := st.LoadDeck(ctx, key)
	if err != nil {
		fail(l, "load deck", err)
	}
	return slides
}

func snapshot(l *slog.Logger, scenePath string) *scene.Snapshot {
	p := &scene.FileProvider{Path: scenePath}
	snap, err := p.Snapshot()
	if err != nil {
		fail(l, "read scene", err)
	}
	return snap
}

func fail(l *slog.Logger, what string, err error) {
	l.Error(what+" failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
