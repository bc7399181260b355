// Package docx loads Word documents by walking the document.xml part of
// the OOXML archive. Rendered page breaks split the output into per-page
// text units so citations can point at a page.
package docx

import (
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"
)

type DocxLoader struct{}

// NewDocxLoader creates a loader for Word documents.
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load extracts paragraph and table text from the document, split at
// page breaks. Tracked deletions are excluded from the output.
func (l *DocxLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]loader.TextUnit, error) {
	pages, err := extractPages(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", doc.SourceName, err)
	}

	var units []loader.TextUnit
	for i, pageText := range pages {
		pageText = util.SanitizeText(pageText)
		if pageText == "" {
			continue
		}
		units = append(units, loader.TextUnit{
			Text:   pageText,
			Page:   i + 1,
			Source: doc.SourceName,
		})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("document %s yielded no extractable text", doc.SourceName)
	}

	return units, nil
}
