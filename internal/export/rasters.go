/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes the slide deck out as shareable documents, one page
// or slide per deck entry.
package export

import (
	"bytes"
	"errors"
	"image/png"
	"log/slog"

	"framedeck/internal/domain"
	applog "framedeck/internal/log"
	"framedeck/internal/render"
	"framedeck/internal/scene"
)

// Options controls how slide rasters are produced before they are embedded.
type Options struct {
	// RasterWidth is the pixel width each slide is rendered at. Defaults
	// to 1600.
	RasterWidth int
	// Dark renders slides with the dark palette.
	Dark bool
	// Background paints the host canvas color behind each frame.
	Background bool
	// ViewBackgroundColor is the host canvas color used with Background.
	ViewBackgroundColor string
}

// ErrNoExportableSlides reports a deck whose frames all failed to resolve.
var ErrNoExportableSlides = errors.New("no slide in the deck resolves to a frame")

// slideRaster is one rendered slide ready for embedding.
type slideRaster struct {
	frame domain.Element
	png   []byte
	w, h  int
}

// collectRasters renders every slide of the deck. Slides whose frame no
// longer resolves in the scene are skipped with a warning; skipped counts
// how many. An entirely unresolvable deck is an error.
func collectRasters(snap *scene.Snapshot, slides []domain.Slide, ras render.Rasterizer, opt Options) (rasters []slideRaster, skipped int, err error) {
	l := applog.WithComponent("export")
	if ras == nil {
		ras = render.Software{}
	}
	width := opt.RasterWidth
	if width <= 0 {
		width = 1600
	}
	ropt := render.Options{
		Width:               width,
		Dark:                opt.Dark,
		Background:          opt.Background,
		ViewBackgroundColor: opt.ViewBackgroundColor,
	}
	for _, s := range slides {
		frame, ok := scene.FrameByID(snap, s.FrameID)
		if !ok {
			l.Warn("skipping slide: frame no longer in scene",
				slog.String("frame", s.FrameID))
			skipped++
			continue
		}
		img, rerr := ras.RenderFrame(snap, s.FrameID, ropt)
		if rerr != nil {
			l.Warn("skipping slide: render failed",
				slog.String("frame", s.FrameID), slog.Any("err", rerr))
			skipped++
			continue
		}
		var buf bytes.Buffer
		if eerr := png.Encode(&buf, img); eerr != nil {
			return nil, skipped, eerr
		}
		b := img.Bounds()
		rasters = append(rasters, slideRaster{
			frame: frame,
			png:   buf.Bytes(),
			w:     b.Dx(),
			h:     b.Dy(),
		})
	}
	if len(rasters) == 0 {
		return nil, skipped, ErrNoExportableSlides
	}
	return rasters, skipped, nil
}
