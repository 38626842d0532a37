/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"framedeck/internal/render"
)

// writeDeckPDF lays the rasters out as a landscape A4 document, one page per
// slide. Each raster is scaled uniformly to fit the page and centered; the
// surrounding margins fall out of the fit ratio.
func writeDeckPDF(w io.Writer, presName string, rasters []slideRaster) error {
	pdf := gofpdf.New("L", "pt", "A4", "")
	pdf.SetTitle(presName, true)
	pageW, pageH := pdf.GetPageSize()

	for i, r := range rasters {
		pdf.AddPage()

		x, y, fitW, fitH := pageGeometry(pageW, pageH, float64(r.w), float64(r.h))

		name := fmt.Sprintf("slide-%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(r.png))
		pdf.ImageOptions(name, x, y, fitW, fitH, false, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// pageGeometry scales an imgW x imgH raster uniformly into the page box and
// centers it, returning the image placement.
func pageGeometry(pageW, pageH, imgW, imgH float64) (x, y, w, h float64) {
	w, h, _ = render.FitDimensions(imgW, imgH, pageW, pageH)
	x = (pageW - w) / 2
	y = (pageH - h) / 2
	return x, y, w, h
}
