/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"sync"

	"framedeck/internal/domain"
	applog "framedeck/internal/log"
	"framedeck/internal/scene"
	"framedeck/internal/store"
)

// State classifies a preview result.
type State int

const (
	// StateEmpty means the scene held nothing to render; the placeholder
	// stands in.
	StateEmpty State = iota
	// StateError means rendering failed; the placeholder stands in and Err
	// carries the cause.
	StateError
	// StateReady means PNG holds a rendered preview.
	StateReady
)

// Preview is the outcome of a preview request. It always carries displayable
// PNG bytes; callers never need an error path of their own.
type Preview struct {
	State State
	PNG   []byte
	Err   error
}

// Generator produces frame previews, backed by the persistent cache when a
// store is attached.
type Generator struct {
	Store *store.Store // optional; nil disables caching
	Key   domain.PresentationKey
	Ras   Rasterizer

	mu  sync.Mutex
	gen map[string]uint64
}

// NewGenerator wires a preview generator for one presentation.
func NewGenerator(st *store.Store, key domain.PresentationKey, ras Rasterizer) *Generator {
	if ras == nil {
		ras = Software{}
	}
	return &Generator{Store: st, Key: key, Ras: ras, gen: make(map[string]uint64)}
}

// Preview renders (or fetches from cache) a preview of frameID. It never
// fails: an empty scene yields StateEmpty and a render failure StateError,
// both with placeholder bytes.
func (g *Generator) Preview(ctx context.Context, snap *scene.Snapshot, frameID string, opt Options) Preview {
	l := applog.WithComponent("render")
	if snap == nil || len(snap.Elements) == 0 {
		return Preview{State: StateEmpty, PNG: Placeholder(opt.Width, opt.Height)}
	}

	variant := store.PreviewVariant{
		FrameID: frameID, W: opt.Width, H: opt.Height,
		Dark: opt.Dark, Background: opt.Background,
	}
	if g.Store != nil {
		if blob, err := g.Store.GetPreview(ctx, g.Key, variant); err != nil {
			l.Warn("preview cache read failed", slog.Any("err", err))
		} else if blob != nil {
			return Preview{State: StateReady, PNG: blob}
		}
	}

	blob, err := EncodePNG(g.Ras, snap, frameID, opt)
	if err != nil {
		l.Warn("preview render failed",
			slog.String("frame", frameID), slog.Any("err", err))
		return Preview{State: StateError, PNG: Placeholder(opt.Width, opt.Height), Err: err}
	}
	if g.Store != nil {
		if err := g.Store.PutPreview(ctx, g.Key, variant, blob); err != nil {
			l.Warn("preview cache write failed", slog.Any("err", err))
		}
	}
	return Preview{State: StateReady, PNG: blob}
}

// PreviewAsync renders in the background and hands the result to deliver.
// If the frame is invalidated while the render is in flight, the stale
// result is discarded and deliver is never called.
func (g *Generator) PreviewAsync(ctx context.Context, provider scene.Provider, frameID string, opt Options, deliver func(Preview)) {
	g.mu.Lock()
	want := g.gen[frameID]
	g.mu.Unlock()

	go func() {
		snap, err := provider.Snapshot()
		var p Preview
		if err != nil {
			p = Preview{State: StateError, PNG: Placeholder(opt.Width, opt.Height), Err: err}
		} else {
			p = g.Preview(ctx, snap, frameID, opt)
		}

		g.mu.Lock()
		stale := g.gen[frameID] != want
		g.mu.Unlock()
		if stale || deliver == nil {
			return
		}
		deliver(p)
	}()
}

// Invalidate drops cached previews of frameID and discards any in-flight
// async render for it.
func (g *Generator) Invalidate(ctx context.Context, frameID string) {
	g.mu.Lock()
	g.gen[frameID]++
	g.mu.Unlock()
	if g.Store != nil {
		if err := g.Store.InvalidatePreviews(ctx, g.Key, frameID); err != nil {
			applog.WithComponent("render").Warn("preview invalidation failed",
				slog.String("frame", frameID), slog.Any("err", err))
		}
	}
}

// Placeholder returns a neutral gray PNG with a diagonal cross, used when no
// preview can be produced.
func Placeholder(w, h int) []byte {
	if w <= 0 {
		w = 320
	}
	if h <= 0 {
		h = w * 3 / 4
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	fg := color.RGBA{0xa0, 0xa0, 0xa0, 0xff}
	fillRect(img, 0, 0, w-1, h-1, bg)
	strokeRect(img, 0, 0, w-1, h-1, fg)
	for x := 0; x < w; x++ {
		y := x * (h - 1) / max(w-1, 1)
		img.SetRGBA(x, y, fg)
		img.SetRGBA(x, h-1-y, fg)
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
