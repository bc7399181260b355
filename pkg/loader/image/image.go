// Package image loads image files by delegating to the multimodal
// analyzer and wrapping its summary as one retrievable text unit.
package image

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"
	"github.com/docsage-ai/docsage/pkg/vision"
)

// Analyzer is the part of the vision analyzer the loader needs.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, mimeType, sourceName string) (vision.Analysis, error)
}

type ImageLoader struct {
	analyzer Analyzer
}

// NewImageLoader creates a loader backed by the given analyzer.
func NewImageLoader(analyzer Analyzer) *ImageLoader {
	return &ImageLoader{analyzer: analyzer}
}

// Load analyzes the image and returns its summary as a single unit.
func (l *ImageLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]loader.TextUnit, error) {
	analysis, err := l.analyzer.Analyze(ctx, data, mimeTypeFor(doc.SourceName), doc.SourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze image %s: %w", doc.SourceName, err)
	}

	return []loader.TextUnit{{
		Text:   analysis.Summary,
		Source: doc.SourceName,
	}}, nil
}

// mimeTypeFor derives the payload MIME type from the file extension,
// defaulting to png for unknown extensions.
func mimeTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}
