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
	"errors"
	"image/png"
	"math"
	"path/filepath"
	"testing"
	"time"

	"framedeck/internal/domain"
	"framedeck/internal/scene"
	"framedeck/internal/store"
)

func TestPreviewScale(t *testing.T) {
	if got := PreviewScale(300, 160); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("want 0.5, got %v", got)
	}
	if got := PreviewScale(0, 160); got != 1 {
		t.Fatalf("non-positive natural width must yield 1, got %v", got)
	}
	if got := PreviewScale(300, 0); got != 1 {
		t.Fatalf("non-positive requested width must yield 1, got %v", got)
	}
}

func TestFitDimensions(t *testing.T) {
	w, h, r := FitDimensions(800, 600, 400, 400)
	if w != 400 || h != 300 || r != 0.5 {
		t.Fatalf("got %v x %v at %v", w, h, r)
	}
	// Taller than wide: height constrains.
	w, h, r = FitDimensions(100, 400, 200, 200)
	if w != 50 || h != 200 || r != 0.5 {
		t.Fatalf("got %v x %v at %v", w, h, r)
	}
	if w, h, r = FitDimensions(0, 10, 10, 10); w != 0 || h != 0 || r != 0 {
		t.Fatalf("degenerate input must yield zeros")
	}
}

func renderSnapshot() *scene.Snapshot {
	return &scene.Snapshot{
		Elements: []domain.Element{
			{ID: "f1", Type: domain.ElementTypeFrame, Name: "One", X: 100, Y: 100, Width: 400, Height: 300},
			{ID: "r1", Type: "rectangle", FrameID: "f1", X: 150, Y: 150, Width: 100, Height: 80,
				StrokeColor: "#ff0000", BackgroundColor: "#00ff00"},
		},
	}
}

func TestSoftwareRenderFrame(t *testing.T) {
	img, err := Software{}.RenderFrame(renderSnapshot(), "f1", Options{Width: 210})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 210 {
		t.Fatalf("want width 210, got %d", b.Dx())
	}
	if b.Dy() <= 0 {
		t.Fatalf("derived height must be positive")
	}
}

func TestSoftwareRenderUnknownFrame(t *testing.T) {
	_, err := Software{}.RenderFrame(renderSnapshot(), "absent", Options{Width: 100})
	if !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("want ErrFrameNotFound, got %v", err)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"#ff0000", true},
		{"1e1e1e", true},
		{"#abc", true},
		{"#80808080", true},
		{"transparent", false},
		{"", false},
		{"#zzz", false},
	}
	for _, c := range cases {
		if _, ok := parseColor(c.in); ok != c.ok {
			t.Fatalf("parseColor(%q): want ok=%v", c.in, c.ok)
		}
	}
}

func TestPlaceholderIsDecodablePNG(t *testing.T) {
	blob := Placeholder(120, 90)
	img, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("placeholder must decode: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 90 {
		t.Fatalf("placeholder size wrong: %v", img.Bounds())
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), store.DBFileName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPreviewTriState(t *testing.T) {
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}
	g := NewGenerator(testStore(t), key, nil)
	ctx := context.Background()

	// Empty scene: placeholder, no error.
	p := g.Preview(ctx, &scene.Snapshot{}, "f1", Options{Width: 100})
	if p.State != StateEmpty || len(p.PNG) == 0 || p.Err != nil {
		t.Fatalf("empty scene: %+v", p)
	}

	// Unresolvable frame: error state with placeholder, never a panic.
	p = g.Preview(ctx, renderSnapshot(), "absent", Options{Width: 100})
	if p.State != StateError || len(p.PNG) == 0 || p.Err == nil {
		t.Fatalf("unknown frame: %+v", p)
	}

	// Happy path.
	p = g.Preview(ctx, renderSnapshot(), "f1", Options{Width: 100})
	if p.State != StateReady || len(p.PNG) == 0 {
		t.Fatalf("ready preview: %+v", p)
	}

	// Second call must be served from the cache with identical bytes.
	p2 := g.Preview(ctx, renderSnapshot(), "f1", Options{Width: 100})
	if p2.State != StateReady || !bytes.Equal(p.PNG, p2.PNG) {
		t.Fatalf("cache miss on identical variant")
	}
}

type gatedProvider struct {
	snap    *scene.Snapshot
	release chan struct{}
}

func (p *gatedProvider) Snapshot() (*scene.Snapshot, error) {
	<-p.release
	return p.snap, nil
}

func TestPreviewAsyncDiscardsStaleResult(t *testing.T) {
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}
	g := NewGenerator(nil, key, nil)
	ctx := context.Background()

	provider := &gatedProvider{snap: renderSnapshot(), release: make(chan struct{})}
	delivered := make(chan Preview, 1)
	g.PreviewAsync(ctx, provider, "f1", Options{Width: 100}, func(p Preview) {
		delivered <- p
	})

	// Invalidate while the render is still blocked on the provider.
	g.Invalidate(ctx, "f1")
	close(provider.release)

	select {
	case <-delivered:
		t.Fatalf("stale preview must be discarded")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPreviewAsyncDeliversFreshResult(t *testing.T) {
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}
	g := NewGenerator(nil, key, nil)
	ctx := context.Background()

	provider := scene.StaticProvider{Snap: renderSnapshot()}
	delivered := make(chan Preview, 1)
	g.PreviewAsync(ctx, provider, "f1", Options{Width: 100}, func(p Preview) {
		delivered <- p
	})
	select {
	case p := <-delivered:
		if p.State != StateReady {
			t.Fatalf("want ready, got %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("async preview never delivered")
	}
}
