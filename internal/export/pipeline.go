/*
 * Copyright (c) 2025 the framedeck authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"framedeck/internal/domain"
	applog "framedeck/internal/log"
	"framedeck/internal/render"
	"framedeck/internal/scene"
	"framedeck/internal/telemetry"
)

// Format selects the output document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPPTX Format = "pptx"
)

// Request describes one export job.
type Request struct {
	Key    domain.PresentationKey
	Slides []domain.Slide
	// OutDir receives the document; created when missing.
	OutDir  string
	Options Options
}

// Result summarizes a finished export.
type Result struct {
	JobID      string
	Path       string
	SlideCount int
	// Skipped counts deck slides whose frame no longer resolved.
	Skipped int
}

// Exporter runs export jobs against the live scene.
type Exporter struct {
	Provider scene.Provider
	Ras      render.Rasterizer
	// OnSaveError is invoked (in addition to logging) when the document
	// cannot be written, so the UI can surface an alert. Optional.
	OnSaveError func(format Format, err error)
}

// FileName returns the output file name for a presentation, falling back to
// "Untitled" when the presentation has no name.
func FileName(key domain.PresentationKey, format Format) string {
	return fmt.Sprintf("%s.%s", key.DisplayTitle(), format)
}

// Export renders the deck and writes the document. Slides are rendered
// sequentially; a slide whose frame left the scene is skipped and counted in
// the result.
func (e *Exporter) Export(ctx context.Context, format Format, req Request) (*Result, error) {
	jobID := uuid.NewString()
	l := applog.WithOperation(applog.WithComponent("export"), string(format)).With(
		slog.String("job", jobID),
		slog.String("presentation", req.Key.StorageKey()),
	)
	if format != FormatPDF && format != FormatPPTX {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := e.Provider.Snapshot()
	if err != nil {
		l.Error("scene snapshot failed", slog.Any("err", err))
		return nil, fmt.Errorf("snapshot scene: %w", err)
	}
	rasters, skipped, err := collectRasters(snap, req.Slides, e.Ras, req.Options)
	if err != nil {
		l.Error("raster collection failed", slog.Any("err", err))
		return nil, err
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	outPath := filepath.Join(outDir, FileName(req.Key, format))

	if err := e.writeDocument(format, outPath, rasters); err != nil {
		l.Error("export save failed", slog.Any("err", err))
		if e.OnSaveError != nil {
			e.OnSaveError(format, err)
		}
		return nil, err
	}

	l.Info("export complete",
		slog.String("path", outPath),
		slog.Int("slides", len(rasters)),
		slog.Int("skipped", skipped),
	)
	telemetry.Event("export_completed", map[string]any{
		"format":  string(format),
		"slides":  len(rasters),
		"skipped": skipped,
	})
	return &Result{
		JobID:      jobID,
		Path:       outPath,
		SlideCount: len(rasters),
		Skipped:    skipped,
	}, nil
}

func (e *Exporter) writeDocument(format Format, outPath string, rasters []slideRaster) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	switch format {
	case FormatPDF:
		err = writeDeckPDF(f, name, rasters)
	case FormatPPTX:
		err = writeDeckPPTX(f, name, rasters)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(outPath)
		return err
	}
	return nil
}
