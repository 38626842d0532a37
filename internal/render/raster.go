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
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"framedeck/internal/domain"
	"framedeck/internal/scene"
)

// Options selects a raster variant of a frame.
type Options struct {
	// Width is the output bitmap width in pixels. Height is derived from the
	// frame's aspect ratio when zero.
	Width  int
	Height int
	// Dark switches the default background and stroke palette.
	Dark bool
	// Background paints the host's view background color behind the frame.
	// When false the bitmap keeps a plain paper background.
	Background bool
	// ViewBackgroundColor is the host canvas color honored when Background
	// is set, e.g. "#ffffff".
	ViewBackgroundColor string
}

// Rasterizer renders one frame of a scene snapshot into a bitmap.
type Rasterizer interface {
	RenderFrame(snap *scene.Snapshot, frameID string, opt Options) (image.Image, error)
}

// ErrFrameNotFound reports a frame id that no longer resolves in the scene.
var ErrFrameNotFound = errors.New("frame not found in scene")

// Software is a dependency-free box rasterizer. It draws element bounding
// boxes with their stroke and background colors, composites image
// attachments, and clips everything to the frame. It is deliberately
// schematic: previews and export rasters need recognizable geometry, not a
// faithful canvas renderer.
type Software struct{}

func (Software) RenderFrame(snap *scene.Snapshot, frameID string, opt Options) (image.Image, error) {
	frame, ok := scene.FrameByID(snap, frameID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFrameNotFound, frameID)
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("frame %s has no area", frameID)
	}

	outW := opt.Width
	if outW <= 0 {
		outW = 320
	}
	scale := PreviewScale(frame.Width, float64(outW))
	outH := opt.Height
	if outH <= 0 {
		outH = int(math.Round((frame.Height + previewPadding) * scale))
		if outH < 1 {
			outH = 1
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, outW, outH))
	pal := paletteFor(opt)
	fillRect(img, 0, 0, outW-1, outH-1, pal.canvas)

	// Center the padded frame box in the output.
	offX := (float64(outW) - frame.Width*scale) / 2
	offY := (float64(outH) - frame.Height*scale) / 2
	toPx := func(x, y float64) (int, int) {
		return int(math.Round((x - frame.X) * scale + offX)),
			int(math.Round((y - frame.Y) * scale + offY))
	}

	// Frame interior.
	fx0, fy0 := toPx(frame.X, frame.Y)
	fx1, fy1 := toPx(frame.X+frame.Width, frame.Y+frame.Height)
	fillRect(img, fx0, fy0, fx1-1, fy1-1, pal.paper)

	clip := image.Rect(fx0, fy0, fx1, fy1)
	content := scene.FrameContent(snap, frameID)
	for _, el := range content.Elements {
		if el.ID == frame.ID {
			continue // the frame itself is only an outline below
		}
		x0, y0 := toPx(el.X, el.Y)
		x1, y1 := toPx(el.X+el.Width, el.Y+el.Height)
		r := image.Rect(x0, y0, x1, y1).Intersect(clip)
		if r.Empty() {
			continue
		}
		if el.Type == "image" && el.FileID != "" {
			if f, ok := snap.Files[el.FileID]; ok {
				if drawAttachment(img, r, f) == nil {
					continue
				}
			}
			// fall through to the box when the attachment cannot decode
		}
		if bg, ok := parseColor(el.BackgroundColor); ok {
			fillRect(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1, bg)
		}
		stroke := pal.stroke
		if c, ok := parseColor(el.StrokeColor); ok {
			stroke = c
		}
		strokeRect(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1, stroke)
	}

	strokeRect(img, fx0, fy0, fx1-1, fy1-1, pal.frame)
	return img, nil
}

// EncodePNG renders the frame and returns it as PNG bytes.
func EncodePNG(r Rasterizer, snap *scene.Snapshot, frameID string, opt Options) ([]byte, error) {
	img, err := r.RenderFrame(snap, frameID, opt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type palette struct {
	canvas color.RGBA
	paper  color.RGBA
	stroke color.RGBA
	frame  color.RGBA
}

func paletteFor(opt Options) palette {
	p := palette{
		canvas: color.RGBA{0xf5, 0xf5, 0xf5, 0xff},
		paper:  color.RGBA{0xff, 0xff, 0xff, 0xff},
		stroke: color.RGBA{0x1e, 0x1e, 0x1e, 0xff},
		frame:  color.RGBA{0xbb, 0xbb, 0xbb, 0xff},
	}
	if opt.Dark {
		p.canvas = color.RGBA{0x12, 0x12, 0x12, 0xff}
		p.paper = color.RGBA{0x1f, 0x1f, 0x1f, 0xff}
		p.stroke = color.RGBA{0xe3, 0xe3, 0xe3, 0xff}
		p.frame = color.RGBA{0x55, 0x55, 0x55, 0xff}
	}
	if opt.Background {
		if c, ok := parseColor(opt.ViewBackgroundColor); ok {
			p.canvas = c
			p.paper = c
		}
	}
	return p
}

// drawAttachment decodes an embedded file and scales it into r.
func drawAttachment(dst *image.RGBA, r image.Rectangle, f domain.BinaryFile) error {
	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return fmt.Errorf("decode attachment: %w", err)
	}
	xdraw.ApproxBiLinear.Scale(dst, r, src, src.Bounds(), xdraw.Over, nil)
	return nil
}

func parseColor(s string) (color.RGBA, bool) {
	if len(s) == 0 || s == "transparent" {
		return color.RGBA{}, false
	}
	if s[0] == '#' {
		s = s[1:]
	}
	hex := func(c byte) (uint8, bool) {
		switch {
		case c >= '0' && c <= '9':
			return c - '0', true
		case c >= 'a' && c <= 'f':
			return c - 'a' + 10, true
		case c >= 'A' && c <= 'F':
			return c - 'A' + 10, true
		}
		return 0, false
	}
	byteAt := func(i int) (uint8, bool) {
		hi, ok1 := hex(s[i])
		lo, ok2 := hex(s[i+1])
		return hi<<4 | lo, ok1 && ok2
	}
	switch len(s) {
	case 3:
		r, ok1 := hex(s[0])
		g, ok2 := hex(s[1])
		b, ok3 := hex(s[2])
		if !ok1 || !ok2 || !ok3 {
			return color.RGBA{}, false
		}
		return color.RGBA{r*16 + r, g*16 + g, b*16 + b, 0xff}, true
	case 6:
		r, ok1 := byteAt(0)
		g, ok2 := byteAt(2)
		b, ok3 := byteAt(4)
		if !ok1 || !ok2 || !ok3 {
			return color.RGBA{}, false
		}
		return color.RGBA{r, g, b, 0xff}, true
	case 8:
		r, ok1 := byteAt(0)
		g, ok2 := byteAt(2)
		b, ok3 := byteAt(4)
		a, ok4 := byteAt(6)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return color.RGBA{}, false
		}
		return color.RGBA{r, g, b, a}, true
	}
	return color.RGBA{}, false
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
