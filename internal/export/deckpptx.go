/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"

	ppt "github.com/VantageDataChat/GoPPT"

	"framedeck/internal/render"
)

// Landscape A3 slide surface, in inches.
const (
	pptxSlideWidthIn  = 16.5
	pptxSlideHeightIn = 11.7
)

// buildDeckPPTX assembles a PowerPoint deck: one slide per raster, the image
// scaled to fill the slide and the frame's display name carried as the shape
// name.
func buildDeckPPTX(presName string, rasters []slideRaster) *ppt.Presentation {
	p := ppt.New()
	p.GetDocumentProperties().Title = presName
	p.GetDocumentProperties().Creator = "framedeck"
	p.GetLayout().SetCustomLayout(ppt.Inch(pptxSlideWidthIn), ppt.Inch(pptxSlideHeightIn))

	for i, r := range rasters {
		slide := p.GetActiveSlide()
		if i > 0 {
			slide = p.CreateSlide()
		}

		fitW, fitH, _ := render.FitDimensions(
			float64(r.w), float64(r.h), pptxSlideWidthIn, pptxSlideHeightIn)
		offX := ppt.Inch((pptxSlideWidthIn - fitW) / 2)
		offY := ppt.Inch((pptxSlideHeightIn - fitH) / 2)

		img := slide.CreateDrawingShape()
		img.SetImageData(r.png, "image/png")
		img.SetOffsetX(offX).SetOffsetY(offY)
		img.SetWidth(ppt.Inch(fitW)).SetHeight(ppt.Inch(fitH))
		img.SetName(r.frame.DisplayName())
	}
	return p
}

// writeDeckPPTX serializes the deck in PowerPoint 2007 format.
func writeDeckPPTX(w io.Writer, presName string, rasters []slideRaster) error {
	p := buildDeckPPTX(presName, rasters)
	pw, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return fmt.Errorf("create pptx writer: %w", err)
	}
	if err := pw.(*ppt.PPTXWriter).WriteTo(w); err != nil {
		return fmt.Errorf("write pptx: %w", err)
	}
	return nil
}
