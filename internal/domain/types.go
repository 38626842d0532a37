/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model for framedeck. Canvas elements are
// owned by the host editor; framedeck only reads them. The slide deck is the
// single piece of durable state owned by this module.

import (
	"fmt"
	"strings"
)

// ElementTypeFrame marks the host's frame elements (grouping regions whose
// members reference them via FrameID).
const ElementTypeFrame = "frame"

// Element is a read-only view of a host canvas element. Only the fields
// framedeck consumes are modeled; the host record is richer.
type Element struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	FrameID string  `json:"frameId,omitempty"` // back-reference to the owning frame
	Name    string  `json:"name,omitempty"`    // frames carry a display name
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Angle   float64 `json:"angle,omitempty"`
	// Visual attributes used by the built-in rasterizer. Colors are CSS hex
	// strings as the host emits them ("#rrggbb" or "transparent").
	StrokeColor     string `json:"strokeColor,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	// FileID references a binary attachment for image elements.
	FileID    string `json:"fileId,omitempty"`
	IsDeleted bool   `json:"isDeleted,omitempty"`
}

// IsFrame reports whether the element is a frame.
func (e Element) IsFrame() bool { return e.Type == ElementTypeFrame }

// DisplayName returns the frame's name, or "Untitled" when blank.
func (e Element) DisplayName() string {
	if e.Name == "" {
		return "Untitled"
	}
	return e.Name
}

// BinaryFile is an image attachment embedded in the scene, needed for
// rasterization of image elements.
type BinaryFile struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// Slide references one canvas frame participating in the deck.
//
// We store a structure rather than a bare frame id so that future fields
// (slide number, hidden flag, speaker notes) have a place to live.
type Slide struct {
	FrameID string `json:"frameId"`
}

// FrameIDs projects a deck to its ordered frame-id list.
func FrameIDs(slides []Slide) []string {
	ids := make([]string, len(slides))
	for i, s := range slides {
		ids[i] = s.FrameID
	}
	return ids
}

// SlidesFromIDs builds a deck from an ordered frame-id list.
func SlidesFromIDs(ids []string) []Slide {
	slides := make([]Slide, len(ids))
	for i, id := range ids {
		slides[i] = Slide{FrameID: id}
	}
	return slides
}

// PresentationKey distinguishes independent decks on the same document.
// CanvasID is the host's stable document identifier; Name is the
// user-visible presentation name used for export file naming.
type PresentationKey struct {
	CanvasID string
	Name     string
}

// StorageKey returns the namespaced key the persisted deck is stored under.
// The layout matches the original per-canvas namespace so decks survive
// host upgrades.
func (k PresentationKey) StorageKey() string {
	return fmt.Sprintf("presentation-%s-frame-ids", k.CanvasID)
}

// DisplayTitle returns the presentation name, or "Untitled" when blank.
func (k PresentationKey) DisplayTitle() string {
	if strings.TrimSpace(k.Name) == "" {
		return "Untitled"
	}
	return k.Name
}

// PlaybackState is the transient state held while the player is mounted.
type PlaybackState struct {
	CurrentSlideIndex  int
	IsPresentationMode bool
	IsFullscreen       bool
}
