//go:build fyne && cgo

/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"framedeck/internal/config"
	"framedeck/internal/crash"
	"framedeck/internal/deck"
	"framedeck/internal/domain"
	"framedeck/internal/export"
	applog "framedeck/internal/log"
	"framedeck/internal/player"
	"framedeck/internal/render"
	"framedeck/internal/scene"
	"framedeck/internal/store"
	"framedeck/internal/telemetry"
	"framedeck/internal/version"
)

// Run starts the Fyne-based sidebar and playback UI for one scene document.
func Run(scenePath, presName string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("scene", scenePath))

	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	telemetry.NewDefault(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))

	dbPath, err := store.DefaultPath()
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	canvasID := strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	key := domain.PresentationKey{CanvasID: canvasID, Name: presName}
	provider := &scene.FileProvider{Path: scenePath}

	state := &appState{
		key:      key,
		store:    st,
		provider: provider,
		cfg:      cfg,
		gen:      render.NewGenerator(st, key, render.Software{}),
	}
	defer crash.Recover(state.deckState)

	ctx := context.Background()
	if state.slides, err = st.LoadDeck(ctx, key); err != nil {
		return err
	}
	if err := state.sync(ctx); err != nil {
		l.Warn("initial deck sync failed", slog.Any("err", err))
	}

	fyneApp := app.NewWithID("framedeck")
	applyTheme(fyneApp, cfg.General.Theme)
	w := fyneApp.NewWindow(fmt.Sprintf("framedeck %s — %s", version.String(), key.DisplayTitle()))
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 750)
	if winW < 700 {
		winW = 700
	}
	if winH < 500 {
		winH = 500
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))
	state.win = w

	status := widget.NewLabel("Ready")
	state.status = status

	slideList := widget.NewList(
		func() int { return len(state.slides) },
		func() fyne.CanvasObject {
			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(float32(cfg.Preview.Width), float32(cfg.Preview.Width)*3/4))
			return container.NewBorder(nil, widget.NewLabel(""), nil, nil, img)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(state.slides) {
				return
			}
			box := obj.(*fyne.Container)
			img := box.Objects[0].(*canvas.Image)
			label := box.Objects[1].(*widget.Label)
			state.bindSlide(ctx, id, img, label)
		},
	)
	state.list = slideList
	// onSelect is extended once the player exists further down.
	onSelect := func(id widget.ListItemID) { state.selected = id }
	slideList.OnSelected = func(id widget.ListItemID) { onSelect(id) }

	syncBtn := widget.NewButton("Sync frames", func() {
		if err := state.sync(ctx); err != nil {
			dialog.ShowError(err, w)
			return
		}
		slideList.Refresh()
		status.SetText(fmt.Sprintf("%d slides", len(state.slides)))
	})
	upBtn := widget.NewButton("Move up", func() { state.move(ctx, -1) })
	downBtn := widget.NewButton("Move down", func() { state.move(ctx, +1) })

	presentBtn := widget.NewButton("Begin presentation", nil)
	state.presentBtn = presentBtn

	exporter := &export.Exporter{
		Provider: provider,
		Ras:      render.Software{},
		OnSaveError: func(f export.Format, err error) {
			fyne.Do(func() { dialog.ShowError(fmt.Errorf("export %s failed: %w", f, err), w) })
		},
	}
	exportJob := func(format export.Format) {
		req := export.Request{
			Key:    key,
			Slides: append([]domain.Slide(nil), state.slides...),
			OutDir: cfg.Export.OutDir,
			Options: export.Options{
				RasterWidth:         cfg.Export.RasterWidth,
				Dark:                cfg.Export.Dark,
				Background:          cfg.Export.Background,
				ViewBackgroundColor: cfg.Export.ViewBackgroundColor,
			},
		}
		go func() {
			res, err := exporter.Export(ctx, format, req)
			if err != nil {
				return // OnSaveError already surfaced save failures
			}
			fyne.Do(func() {
				status.SetText(fmt.Sprintf("Exported %d slides to %s", res.SlideCount, res.Path))
			})
		}()
	}
	exportPDF := widget.NewButton("Export PDF", func() { exportJob(export.FormatPDF) })
	exportPPTX := widget.NewButton("Export PPTX", func() { exportJob(export.FormatPPTX) })

	sidebar := container.NewBorder(
		container.NewVBox(syncBtn, container.NewGridWithColumns(2, upBtn, downBtn)),
		container.NewVBox(presentBtn, exportPDF, exportPPTX, status),
		nil, nil,
		slideList,
	)

	// Playback surface: one big raster per slide, chrome hidden while
	// presenting.
	viewerImg := canvas.NewImageFromImage(nil)
	viewerImg.FillMode = canvas.ImageFillContain
	viewer := &fyneViewer{img: viewerImg}
	state.viewer = viewer

	prevBtn := widget.NewButton("Prev", nil)
	nextBtn := widget.NewButton("Next", nil)
	fsBtn := widget.NewButton("Fullscreen", nil)
	endBtn := widget.NewButton("End", nil)
	playbackBar := container.NewHBox(prevBtn, nextBtn, fsBtn, endBtn)
	playbackView := container.NewBorder(nil, playbackBar, nil, nil, viewerImg)
	playbackView.Hide()

	mainView := container.NewBorder(nil, nil, sidebar, nil,
		widget.NewLabel("Slides are frames of the host scene. Sync, reorder, present, export."))

	root := container.NewStack(mainView, playbackView)
	w.SetContent(root)

	pl := player.New(viewer, &fyneFullscreen{win: w}, player.Hooks{
		OnStart: func() {
			fyne.Do(func() {
				mainView.Hide()
				playbackView.Show()
			})
		},
		OnEnd: func() {
			fyne.Do(func() {
				playbackView.Hide()
				mainView.Show()
			})
		},
		OnSlideChange: func(i int) {
			fyne.Do(func() { status.SetText(fmt.Sprintf("Slide %d", i+1)) })
		},
	})

	onSelect = func(id widget.ListItemID) {
		state.selected = id
		if pl.State().IsPresentationMode && id >= 0 && id < len(state.slides) {
			_ = pl.SelectSlide(state.slides[id].FrameID)
		}
	}

	presentBtn.OnTapped = func() {
		if err := pl.Start(state.slides, provider); err != nil {
			dialog.ShowError(err, w)
		}
	}
	prevBtn.OnTapped = func() { _ = pl.Prev() }
	nextBtn.OnTapped = func() { _ = pl.Next() }
	fsBtn.OnTapped = func() { _ = pl.ToggleFullscreen() }
	endBtn.OnTapped = func() { pl.End() }

	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if !pl.State().IsPresentationMode {
			return
		}
		switch ev.Name {
		case fyne.KeyRight, fyne.KeySpace, fyne.KeyPageDown:
			_ = pl.Next()
		case fyne.KeyLeft, fyne.KeyPageUp:
			_ = pl.Prev()
		case fyne.KeyEscape:
			pl.End()
		}
	})

	state.refreshPresentButton()
	w.SetOnClosed(func() {
		prefs.SetInt("window.width", int(w.Canvas().Size().Width))
		prefs.SetInt("window.height", int(w.Canvas().Size().Height))
	})

	w.ShowAndRun()
	return nil
}

// appState bundles the mutable sidebar state shared by the handlers.
type appState struct {
	key      domain.PresentationKey
	store    *store.Store
	provider scene.Provider
	cfg      config.AppConfig
	gen      *render.Generator

	win        fyne.Window
	list       *widget.List
	status     *widget.Label
	presentBtn *widget.Button

	slides   []domain.Slide
	selected int
}

func (s *appState) deckState() (domain.PresentationKey, []domain.Slide, bool) {
	return s.key, s.slides, len(s.slides) > 0
}

// sync reconciles the deck against the scene and persists on change.
func (s *appState) sync(ctx context.Context) error {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return err
	}
	next, changed := deck.Reconcile(scene.FrameIDs(snap), s.slides)
	if !changed {
		return nil
	}
	if err := s.store.ReplaceDeck(ctx, s.key, next); err != nil {
		return err
	}
	s.slides = next
	s.refreshPresentButton()
	return nil
}

// move shifts the selected slide by delta and persists the new order.
func (s *appState) move(ctx context.Context, delta int) {
	from := s.selected
	to := from + delta
	ids := domain.FrameIDs(s.slides)
	moved := deck.Move(ids, from, to)
	if len(moved) == len(ids) && from >= 0 && from < len(ids) && to >= 0 && to < len(ids) {
		next := domain.SlidesFromIDs(moved)
		if err := s.store.ReplaceDeck(ctx, s.key, next); err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		s.slides = next
		s.selected = to
		s.list.Refresh()
	}
}

func (s *appState) refreshPresentButton() {
	if s.presentBtn == nil {
		return
	}
	if len(s.slides) == 0 {
		s.presentBtn.Disable()
	} else {
		s.presentBtn.Enable()
	}
}

// bindSlide fills one sidebar row, rendering the preview in the background.
func (s *appState) bindSlide(ctx context.Context, id int, img *canvas.Image, label *widget.Label) {
	frameID := s.slides[id].FrameID
	label.SetText(s.slideTitle(frameID))
	opt := render.Options{
		Width:               s.cfg.Preview.Width,
		Background:          s.cfg.Export.Background,
		ViewBackgroundColor: s.cfg.Export.ViewBackgroundColor,
	}
	s.gen.PreviewAsync(ctx, s.provider, frameID, opt, func(p render.Preview) {
		decoded, _, err := image.Decode(bytes.NewReader(p.PNG))
		if err != nil {
			return
		}
		fyne.Do(func() {
			img.Image = decoded
			img.Refresh()
		})
	})
}

func (s *appState) slideTitle(frameID string) string {
	snap, err := s.provider.Snapshot()
	if err != nil {
		return frameID
	}
	if frame, ok := scene.FrameByID(snap, frameID); ok {
		return frame.DisplayName()
	}
	return frameID
}

// fyneViewer shows the frozen playback scene in a single image widget.
// The scene arrives whole at playback start; ScrollToFrame is the camera,
// re-rendering the viewport around the target frame.
type fyneViewer struct {
	img  *canvas.Image
	snap *scene.Snapshot
}

func (v *fyneViewer) Load(s *scene.Snapshot) error {
	v.snap = s
	fyne.Do(func() {
		v.img.Image = nil
		v.img.Refresh()
	})
	return nil
}

func (v *fyneViewer) ScrollToFrame(f domain.Element) {
	if v.snap == nil {
		return
	}
	rendered, err := render.Software{}.RenderFrame(v.snap, f.ID, render.Options{Width: 1600})
	if err != nil {
		applog.WithComponent("ui").Warn("slide render failed",
			slog.String("frame", f.ID), slog.Any("err", err))
		return
	}
	fyne.Do(func() {
		v.img.Image = rendered
		v.img.Refresh()
	})
}

func (v *fyneViewer) SetChromeHidden(bool) {
	// Chrome switching is handled by the player hooks showing and hiding
	// the playback view.
}

// variantTheme pins the stock theme to one variant regardless of the system
// setting.
type variantTheme struct {
	base    fyne.Theme
	variant fyne.ThemeVariant
}

func (t *variantTheme) Color(n fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.base.Color(n, t.variant)
}
func (t *variantTheme) Icon(n fyne.ThemeIconName) fyne.Resource { return t.base.Icon(n) }
func (t *variantTheme) Font(s fyne.TextStyle) fyne.Resource     { return t.base.Font(s) }
func (t *variantTheme) Size(n fyne.ThemeSizeName) float32       { return t.base.Size(n) }

// applyTheme honors the configured theme. "system" and unknown values leave
// the platform default in place.
func applyTheme(a fyne.App, name string) {
	switch name {
	case "dark":
		a.Settings().SetTheme(&variantTheme{base: theme.DefaultTheme(), variant: theme.VariantDark})
	case "light":
		a.Settings().SetTheme(&variantTheme{base: theme.DefaultTheme(), variant: theme.VariantLight})
	}
}

// fyneFullscreen toggles the window's fullscreen state.
type fyneFullscreen struct{ win fyne.Window }

func (f *fyneFullscreen) Enter() error {
	fyne.Do(func() { f.win.SetFullScreen(true) })
	return nil
}

func (f *fyneFullscreen) Exit() error {
	fyne.Do(func() { f.win.SetFullScreen(false) })
	return nil
}

func (f *fyneFullscreen) Active() bool { return f.win.FullScreen() }
