/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package player drives presentation playback: an isolated read-only viewer
// fed one frozen scene, stepped through the deck one slide at a time.
package player

import (
	"errors"
	"log/slog"
	"sync"

	"framedeck/internal/domain"
	applog "framedeck/internal/log"
	"framedeck/internal/scene"
	"framedeck/internal/telemetry"
)

// ErrEmptyDeck rejects starting playback with no slides.
var ErrEmptyDeck = errors.New("cannot start presentation: deck is empty")

// ErrNotPresenting reports navigation outside an active presentation.
var ErrNotPresenting = errors.New("no presentation is active")

// Viewer is the isolated read-only surface playback renders into. The live
// editor never receives playback commands.
type Viewer interface {
	// Load replaces the viewer's scene. It is called once per Start with the
	// frozen snapshot; all navigation afterwards is camera movement.
	Load(snap *scene.Snapshot) error
	// ScrollToFrame centers and fits the given frame.
	ScrollToFrame(frame domain.Element)
	// SetChromeHidden toggles surrounding UI chrome while presenting.
	SetChromeHidden(hidden bool)
}

// Fullscreener abstracts the platform fullscreen toggle. Failures are
// tolerated; playback continues windowed.
type Fullscreener interface {
	Enter() error
	Exit() error
	Active() bool
}

// Hooks let the embedding UI react to playback transitions.
type Hooks struct {
	OnStart func()
	OnEnd   func()
	// OnSlideChange receives the new slide index after navigation.
	OnSlideChange func(index int)
}

// Player is the playback state machine. All methods are safe for concurrent
// use.
type Player struct {
	mu     sync.Mutex
	viewer Viewer
	fs     Fullscreener
	hooks  Hooks

	deck  []domain.Slide
	snap  *scene.Snapshot
	state domain.PlaybackState
}

// New wires a player. The viewer is required; the fullscreener may be nil
// when the platform has none.
func New(viewer Viewer, fs Fullscreener, hooks Hooks) *Player {
	return &Player{viewer: viewer, fs: fs, hooks: hooks}
}

// State returns a copy of the current playback state.
func (p *Player) State() domain.PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SlideCount reports the frozen deck length, zero when not presenting.
func (p *Player) SlideCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deck)
}

// Start enters presentation mode. The scene is snapshotted once and handed
// to the viewer whole; canvas edits made during playback do not appear until
// the next Start. The slide index survives End, so a restart resumes where
// the last run stopped, clamped into the new deck. An empty deck is
// rejected. Fullscreen entry is best-effort: a platform refusal is logged
// and playback continues windowed.
func (p *Player) Start(slides []domain.Slide, provider scene.Provider) error {
	if len(slides) == 0 {
		return ErrEmptyDeck
	}
	snap, err := provider.Snapshot()
	if err != nil {
		return err
	}

	p.mu.Lock()
	if err := p.viewer.Load(snap); err != nil {
		p.mu.Unlock()
		return err
	}
	p.deck = append([]domain.Slide(nil), slides...)
	p.snap = snap
	index := p.state.CurrentSlideIndex
	if index > len(slides)-1 {
		index = len(slides) - 1
	}
	if index < 0 {
		index = 0
	}
	p.state = domain.PlaybackState{IsPresentationMode: true, CurrentSlideIndex: index}

	if p.fs != nil {
		if err := p.fs.Enter(); err != nil {
			applog.WithComponent("player").Warn("fullscreen entry refused",
				slog.Any("err", err))
		} else {
			p.state.IsFullscreen = true
		}
	}
	p.viewer.SetChromeHidden(true)
	p.scrollLocked(index)
	onStart := p.hooks.OnStart
	p.mu.Unlock()

	if onStart != nil {
		onStart()
	}
	telemetry.Event("presentation_started", map[string]any{"slides": len(slides)})
	return nil
}

// End leaves presentation mode, restoring chrome and exiting fullscreen
// best-effort.
func (p *Player) End() {
	p.mu.Lock()
	if !p.state.IsPresentationMode {
		p.mu.Unlock()
		return
	}
	if p.fs != nil && p.state.IsFullscreen {
		if err := p.fs.Exit(); err != nil {
			applog.WithComponent("player").Warn("fullscreen exit failed",
				slog.Any("err", err))
		}
	}
	p.viewer.SetChromeHidden(false)
	p.deck = nil
	p.snap = nil
	// Keep the slide index so the next Start resumes here.
	p.state = domain.PlaybackState{CurrentSlideIndex: p.state.CurrentSlideIndex}
	onEnd := p.hooks.OnEnd
	p.mu.Unlock()

	if onEnd != nil {
		onEnd()
	}
}

// Next advances one slide. On the last slide it stays put; there is no
// wrap-around.
func (p *Player) Next() error { return p.step(+1) }

// Prev steps back one slide, clamped at the first slide.
func (p *Player) Prev() error { return p.step(-1) }

// GoTo jumps to the given slide index, clamped into the deck range.
func (p *Player) GoTo(index int) error {
	p.mu.Lock()
	if !p.state.IsPresentationMode {
		p.mu.Unlock()
		return ErrNotPresenting
	}
	if index < 0 {
		index = 0
	}
	if index > len(p.deck)-1 {
		index = len(p.deck) - 1
	}
	changed := p.moveLocked(index)
	onChange := p.hooks.OnSlideChange
	cur := p.state.CurrentSlideIndex
	p.mu.Unlock()

	if changed && onChange != nil {
		onChange(cur)
	}
	return nil
}

// SelectSlide jumps to the slide showing the given frame. A frame id not in
// the deck is ignored.
func (p *Player) SelectSlide(frameID string) error {
	p.mu.Lock()
	if !p.state.IsPresentationMode {
		p.mu.Unlock()
		return ErrNotPresenting
	}
	index := -1
	for i, s := range p.deck {
		if s.FrameID == frameID {
			index = i
			break
		}
	}
	if index < 0 {
		p.mu.Unlock()
		return nil
	}
	changed := p.moveLocked(index)
	onChange := p.hooks.OnSlideChange
	cur := p.state.CurrentSlideIndex
	p.mu.Unlock()

	if changed && onChange != nil {
		onChange(cur)
	}
	return nil
}

// ToggleFullscreen flips the fullscreen state while presenting.
func (p *Player) ToggleFullscreen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.IsPresentationMode {
		return ErrNotPresenting
	}
	if p.fs == nil {
		return nil
	}
	if p.state.IsFullscreen {
		if err := p.fs.Exit(); err != nil {
			return err
		}
		p.state.IsFullscreen = false
		return nil
	}
	if err := p.fs.Enter(); err != nil {
		return err
	}
	p.state.IsFullscreen = true
	return nil
}

func (p *Player) step(delta int) error {
	p.mu.Lock()
	if !p.state.IsPresentationMode {
		p.mu.Unlock()
		return ErrNotPresenting
	}
	next := p.state.CurrentSlideIndex + delta
	if next < 0 || next > len(p.deck)-1 {
		p.mu.Unlock()
		return nil
	}
	changed := p.moveLocked(next)
	onChange := p.hooks.OnSlideChange
	cur := p.state.CurrentSlideIndex
	p.mu.Unlock()

	if changed && onChange != nil {
		onChange(cur)
	}
	return nil
}

// moveLocked navigates to index. Callers hold the mutex.
func (p *Player) moveLocked(index int) bool {
	if index == p.state.CurrentSlideIndex {
		return false
	}
	p.state.CurrentSlideIndex = index
	p.scrollLocked(index)
	return true
}

// scrollLocked moves the viewer camera to the slide's frame. The scene was
// loaded whole at Start; navigation never swaps content. Callers hold the
// mutex.
func (p *Player) scrollLocked(index int) {
	if frame, ok := scene.FrameByID(p.snap, p.deck[index].FrameID); ok {
		p.viewer.ScrollToFrame(frame)
	}
}
