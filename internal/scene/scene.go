/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene gives framedeck a read-only view of the host editor's canvas.
// The live editor is reached through the Provider interface so that the rest
// of the module (and its tests) never touch a host handle directly.
package scene

import "framedeck/internal/domain"

// Files maps host file ids to their binary attachments.
type Files map[string]domain.BinaryFile

// Snapshot is a frozen copy of the host scene at one point in time.
type Snapshot struct {
	Elements []domain.Element `json:"elements"`
	Files    Files            `json:"files,omitempty"`
}

// Provider yields scene snapshots. Implementations wrap the live editor
// handle; tests supply fixed snapshots.
type Provider interface {
	Snapshot() (*Snapshot, error)
}

// StaticProvider serves a fixed snapshot. It backs playback (one frozen scene
// for the whole presentation) and tests.
type StaticProvider struct{ Snap *Snapshot }

func (p StaticProvider) Snapshot() (*Snapshot, error) { return p.Snap, nil }

// FrameRendering carries the host's frame-rendering flags.
type FrameRendering struct {
	Enabled bool `json:"enabled"`
	Clip    bool `json:"clip"`
	Outline bool `json:"outline"`
	Name    bool `json:"name"`
}

// AppState is the subset of host view state framedeck pins when rendering
// frame content: outlines and names suppressed, clipping on, so rasterized
// output shows only the frame's clipped content and no editor chrome.
type AppState struct {
	FrameRendering      FrameRendering `json:"frameRendering"`
	ExportWithDarkMode  bool           `json:"exportWithDarkMode,omitempty"`
	ExportBackground    bool           `json:"exportBackground,omitempty"`
	ViewBackgroundColor string         `json:"viewBackgroundColor,omitempty"`
}

// ExportAppState returns the fixed flags used for previews, playback and
// export rendering.
func ExportAppState() AppState {
	return AppState{
		FrameRendering: FrameRendering{
			Enabled: true,
			Clip:    true,
			Outline: false,
			Name:    false,
		},
	}
}

// Content is the ephemeral element subset logically owned by one frame.
// It is recomputed on demand and never persisted.
type Content struct {
	Elements []domain.Element
	AppState AppState
}

// FrameIDs returns the ids of all live frames in the snapshot, in scene
// order. Scene order is the discovery order used when appending new slides.
func FrameIDs(snap *Snapshot) []string {
	if snap == nil {
		return nil
	}
	var ids []string
	for _, el := range snap.Elements {
		if el.IsFrame() && !el.IsDeleted {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

// FrameByID resolves a frame element. The second return is false when the id
// does not name a live frame.
func FrameByID(snap *Snapshot, frameID string) (domain.Element, bool) {
	if snap == nil {
		return domain.Element{}, false
	}
	for _, el := range snap.Elements {
		if el.ID == frameID && el.IsFrame() && !el.IsDeleted {
			return el, true
		}
	}
	return domain.Element{}, false
}

// FrameContent collects the element subset owned by frameID: every live
// element whose FrameID back-reference matches, plus the frame element itself
// appended last. A frame id that does not resolve still yields whatever
// children match; it is not an error.
func FrameContent(snap *Snapshot, frameID string) Content {
	c := Content{AppState: ExportAppState()}
	if snap == nil {
		return c
	}
	for _, el := range snap.Elements {
		if el.IsDeleted {
			continue
		}
		if el.FrameID == frameID {
			c.Elements = append(c.Elements, el)
		}
	}
	if frame, ok := FrameByID(snap, frameID); ok {
		c.Elements = append(c.Elements, frame)
	}
	return c
}
