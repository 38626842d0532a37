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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"framedeck/internal/domain"
)

// PreviewVariant identifies one rendered preview bitmap. Two variants of the
// same frame differ in requested size or render flags.
type PreviewVariant struct {
	FrameID    string
	W, H       int
	Dark       bool
	Background bool
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetPreview returns the cached PNG bytes for the variant, or nil when the
// cache has no entry. A hit refreshes the LRU access time.
func (s *Store) GetPreview(ctx context.Context, key domain.PresentationKey, v PreviewVariant) ([]byte, error) {
	pres := key.StorageKey()
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT png_blob FROM previews WHERE presentation=? AND frame_id=? AND w=? AND h=? AND dark=? AND background=?`,
		pres, v.FrameID, v.W, v.H, b2i(v.Dark), b2i(v.Background)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = s.db.ExecContext(ctx,
		`UPDATE previews SET last_access=? WHERE presentation=? AND frame_id=? AND w=? AND h=? AND dark=? AND background=?`,
		now, pres, v.FrameID, v.W, v.H, b2i(v.Dark), b2i(v.Background))
	return blob, nil
}

// PutPreview upserts a preview PNG and enforces the cache byte cap via LRU
// eviction.
func (s *Store) PutPreview(ctx context.Context, key domain.PresentationKey, v PreviewVariant, blob []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO previews(presentation,frame_id,w,h,dark,background,png_blob,size,updated_at,last_access)
		 VALUES(?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(presentation,frame_id,w,h,dark,background) DO UPDATE SET
		   png_blob=excluded.png_blob, size=excluded.size,
		   updated_at=excluded.updated_at, last_access=excluded.last_access`,
		key.StorageKey(), v.FrameID, v.W, v.H, b2i(v.Dark), b2i(v.Background),
		blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes := MaxPreviewBytesFromEnv(); capBytes > 0 {
		if err := s.evictPreviewsToFit(ctx, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// InvalidatePreviews drops every cached variant of frameID. Called when the
// frame's content changes on canvas.
func (s *Store) InvalidatePreviews(ctx context.Context, key domain.PresentationKey, frameID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM previews WHERE presentation=? AND frame_id=?`,
		key.StorageKey(), frameID); err != nil {
		return fmt.Errorf("invalidate previews: %w", err)
	}
	return nil
}

// TotalPreviewBytes reports the bytes currently held by the cache.
func (s *Store) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum preview size: %w", err)
	}
	return total, nil
}

// evictPreviewsToFit deletes least-recently-used rows until the total size is
// within capBytes. Rows never accessed count as oldest.
func (s *Store) evictPreviewsToFit(ctx context.Context, capBytes int64) error {
	total, err := s.TotalPreviewBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select eviction victims: %w", err)
	}
	victims := make([]int64, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before writing.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (`
	args := make([]any, len(victims))
	for i, id := range victims {
		if i > 0 {
			q += ","
		}
		q += "?"
		args[i] = id
	}
	q += ")"
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("evict previews: %w", err)
	}
	return nil
}

// MaxPreviewBytesFromEnv reads FDK_PREVIEWS_MAX_BYTES, defaulting to 64MB.
func MaxPreviewBytesFromEnv() int64 {
	v := os.Getenv("FDK_PREVIEWS_MAX_BYTES")
	if v == "" {
		return 64 * 1024 * 1024
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 64 * 1024 * 1024
	}
	return n
}
