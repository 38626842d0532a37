/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"framedeck/internal/domain"
)

// LoadDeck returns the persisted slide list for key, in order. A presentation
// with no saved deck yields an empty (nil) list, not an error.
func (s *Store) LoadDeck(ctx context.Context, key domain.PresentationKey) ([]domain.Slide, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_id FROM decks WHERE presentation=? ORDER BY position ASC`,
		key.StorageKey())
	if err != nil {
		return nil, fmt.Errorf("load deck: %w", err)
	}
	defer rows.Close()

	var slides []domain.Slide
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		slides = append(slides, domain.Slide{FrameID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deck: %w", err)
	}
	return slides, nil
}

// ReplaceDeck overwrites the whole slide list for key in one transaction.
// Positions are rewritten 0..n-1 from the slice order. An empty slice clears
// the saved deck.
func (s *Store) ReplaceDeck(ctx context.Context, key domain.PresentationKey, slides []domain.Slide) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace deck: %w", err)
	}
	pres := key.StorageKey()
	if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE presentation=?`, pres); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear deck: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, sl := range slides {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO decks (presentation, position, frame_id, updated_at) VALUES(?, ?, ?, ?)`,
			pres, i, sl.FrameID, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert slide %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace deck: %w", err)
	}
	return nil
}

// DeleteDeck removes the saved slide list and cached previews for key.
func (s *Store) DeleteDeck(ctx context.Context, key domain.PresentationKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete deck: %w", err)
	}
	pres := key.StorageKey()
	if _, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE presentation=?`, pres); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete deck: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM previews WHERE presentation=?`, pres); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete previews: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete deck: %w", err)
	}
	return nil
}

// ListPresentations returns the storage keys of every saved deck.
func (s *Store) ListPresentations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT presentation FROM decks ORDER BY presentation`)
	if err != nil {
		return nil, fmt.Errorf("list presentations: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan presentation: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presentations: %w", err)
	}
	return keys, nil
}
