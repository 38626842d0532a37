/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package deck holds the slide-deck algorithms: reconciling the persisted
// deck against the frames currently on canvas, and reorder move semantics.
package deck

import "framedeck/internal/domain"

// Diff describes how the deck and the canvas have diverged.
type Diff struct {
	// OnlyInCanvas are frame ids present on canvas but missing from the
	// deck, in canvas discovery order.
	OnlyInCanvas []string
	// OnlyInDeck are slides whose frame no longer exists on canvas.
	OnlyInDeck []domain.Slide
}

// Empty reports whether deck and canvas already agree.
func (d Diff) Empty() bool { return len(d.OnlyInCanvas) == 0 && len(d.OnlyInDeck) == 0 }

// Compare computes the two-sided difference between canvas frame ids and the
// deck's slides.
func Compare(frameIDsInCanvas []string, slides []domain.Slide) Diff {
	inDeck := make(map[string]struct{}, len(slides))
	for _, s := range slides {
		inDeck[s.FrameID] = struct{}{}
	}
	inCanvas := make(map[string]struct{}, len(frameIDsInCanvas))
	for _, id := range frameIDsInCanvas {
		inCanvas[id] = struct{}{}
	}

	var d Diff
	for _, id := range frameIDsInCanvas {
		if _, ok := inDeck[id]; !ok {
			d.OnlyInCanvas = append(d.OnlyInCanvas, id)
		}
	}
	for _, s := range slides {
		if _, ok := inCanvas[s.FrameID]; !ok {
			d.OnlyInDeck = append(d.OnlyInDeck, s)
		}
	}
	return d
}

// Reconcile merges the canvas's current frame-id set into the deck. Frames
// new to the canvas are appended in discovery order; slides whose frame left
// the canvas are dropped; the relative order of survivors is preserved.
//
// The boolean reports whether the deck changed. When it is false the input
// slice is returned as-is so callers can skip the persisted write.
func Reconcile(frameIDsInCanvas []string, slides []domain.Slide) ([]domain.Slide, bool) {
	d := Compare(frameIDsInCanvas, slides)
	if d.Empty() {
		return slides, false
	}

	stale := make(map[string]struct{}, len(d.OnlyInDeck))
	for _, s := range d.OnlyInDeck {
		stale[s.FrameID] = struct{}{}
	}

	next := make([]domain.Slide, 0, len(slides)+len(d.OnlyInCanvas))
	for _, s := range slides {
		if _, drop := stale[s.FrameID]; !drop {
			next = append(next, s)
		}
	}
	for _, id := range d.OnlyInCanvas {
		next = append(next, domain.Slide{FrameID: id})
	}
	return next, true
}

// Move relocates the element at index from to index to, shifting the
// elements in between. Out-of-range indexes leave the input untouched.
// These are the drag-reorder semantics of the sidebar list.
func Move(ids []string, from, to int) []string {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) || from == to {
		return ids
	}
	out := make([]string, 0, len(ids))
	out = append(out, ids[:from]...)
	out = append(out, ids[from+1:]...)
	// insert at to
	out = append(out[:to], append([]string{ids[from]}, out[to:]...)...)
	return out
}
