/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"framedeck/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DBFileName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = s2.Close()
}

func TestDeckRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}

	got, err := s.LoadDeck(ctx, key)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty deck, got %d slides", len(got))
	}

	want := domain.SlidesFromIDs([]string{"f1", "f2", "f3"})
	if err := s.ReplaceDeck(ctx, key, want); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err = s.LoadDeck(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}

	// Wholesale replace with a reordered, shorter list.
	want = domain.SlidesFromIDs([]string{"f3", "f1"})
	if err := s.ReplaceDeck(ctx, key, want); err != nil {
		t.Fatalf("replace 2: %v", err)
	}
	got, err = s.LoadDeck(ctx, key)
	if err != nil {
		t.Fatalf("load 2: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestDecksAreIsolatedPerPresentation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := domain.PresentationKey{CanvasID: "c1", Name: "a"}
	b := domain.PresentationKey{CanvasID: "c2", Name: "b"}

	if err := s.ReplaceDeck(ctx, a, domain.SlidesFromIDs([]string{"x"})); err != nil {
		t.Fatalf("replace a: %v", err)
	}
	if err := s.ReplaceDeck(ctx, b, domain.SlidesFromIDs([]string{"y", "z"})); err != nil {
		t.Fatalf("replace b: %v", err)
	}
	ga, _ := s.LoadDeck(ctx, a)
	gb, _ := s.LoadDeck(ctx, b)
	if len(ga) != 1 || ga[0].FrameID != "x" {
		t.Fatalf("deck a leaked: %v", ga)
	}
	if len(gb) != 2 {
		t.Fatalf("deck b wrong: %v", gb)
	}

	keys, err := s.ListPresentations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("want 2 presentations, got %v", keys)
	}
}

func TestDeleteDeckClearsSlidesAndPreviews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}

	if err := s.ReplaceDeck(ctx, key, domain.SlidesFromIDs([]string{"f1"})); err != nil {
		t.Fatalf("replace: %v", err)
	}
	v := PreviewVariant{FrameID: "f1", W: 200, H: 150}
	if err := s.PutPreview(ctx, key, v, []byte("png")); err != nil {
		t.Fatalf("put preview: %v", err)
	}
	if err := s.DeleteDeck(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.LoadDeck(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("deck not cleared: %v", got)
	}
	blob, err := s.GetPreview(ctx, key, v)
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	if blob != nil {
		t.Fatalf("preview not cleared")
	}
}

func TestPreviewCacheHitAndVariantMiss(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}

	v := PreviewVariant{FrameID: "f1", W: 200, H: 150, Dark: false, Background: true}
	payload := []byte{0x89, 'P', 'N', 'G'}
	if err := s.PutPreview(ctx, key, v, payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.GetPreview(ctx, key, v)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("cache hit returned wrong bytes")
	}

	// Different render flags are a different variant.
	dark := v
	dark.Dark = true
	got, err = s.GetPreview(ctx, key, dark)
	if err != nil {
		t.Fatalf("get dark: %v", err)
	}
	if got != nil {
		t.Fatalf("variant flags must not collide")
	}
}

func TestInvalidatePreviewsDropsAllVariants(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}

	for _, v := range []PreviewVariant{
		{FrameID: "f1", W: 100, H: 75},
		{FrameID: "f1", W: 200, H: 150},
		{FrameID: "f2", W: 100, H: 75},
	} {
		if err := s.PutPreview(ctx, key, v, []byte("x")); err != nil {
			t.Fatalf("put %v: %v", v, err)
		}
	}
	if err := s.InvalidatePreviews(ctx, key, "f1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if got, _ := s.GetPreview(ctx, key, PreviewVariant{FrameID: "f1", W: 100, H: 75}); got != nil {
		t.Fatalf("f1 variant survived invalidation")
	}
	if got, _ := s.GetPreview(ctx, key, PreviewVariant{FrameID: "f2", W: 100, H: 75}); got == nil {
		t.Fatalf("f2 variant wrongly dropped")
	}
}

func TestPreviewEvictionRespectsByteCap(t *testing.T) {
	t.Setenv("FDK_PREVIEWS_MAX_BYTES", "300")
	s := openTestStore(t)
	ctx := context.Background()
	key := domain.PresentationKey{CanvasID: "c1", Name: "talk"}

	big := make([]byte, 120)
	for i := 0; i < 5; i++ {
		v := PreviewVariant{FrameID: "f1", W: 100 + i, H: 75}
		if err := s.PutPreview(ctx, key, v, big); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	total, err := s.TotalPreviewBytes(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 300 {
		t.Fatalf("cache over cap: %d bytes", total)
	}
	if total == 0 {
		t.Fatalf("eviction emptied the cache entirely")
	}
}
