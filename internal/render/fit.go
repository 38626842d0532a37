/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns frame content into bitmaps: sidebar previews and the
// full-size rasters the exporters embed.
package render

// previewPadding widens the natural frame size before the preview scale is
// computed, so a thin margin survives around the frame in the thumbnail.
const previewPadding = 20

// PreviewScale returns the uniform scale that maps a frame of naturalWidth
// onto a requested preview width, padding included. Non-positive inputs
// yield 1.
func PreviewScale(naturalWidth, requestedWidth float64) float64 {
	if naturalWidth <= 0 || requestedWidth <= 0 {
		return 1
	}
	return requestedWidth / (naturalWidth + previewPadding)
}

// FitDimensions scales (w, h) uniformly to fit inside (maxW, maxH) without
// cropping, returning the fitted size and the ratio applied. A source or
// bound that is not positive returns zeros.
func FitDimensions(w, h, maxW, maxH float64) (fitW, fitH, ratio float64) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0, 0
	}
	ratio = maxW / w
	if r := maxH / h; r < ratio {
		ratio = r
	}
	return w * ratio, h * ratio, ratio
}
