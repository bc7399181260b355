// Package pdf loads PDF files into one text unit per page so page
// numbers survive into chunk metadata and citations.
package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/ledongthuc/pdf"
)

type PDFLoader struct{}

// NewPDFLoader creates a loader for PDF content.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load extracts the plain text of every page. Pages that fail to parse
// are skipped and logged; the file only fails when no page yields text.
func (l *PDFLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]loader.TextUnit, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", doc.SourceName, err)
	}

	var units []loader.TextUnit
	for pageNo := 1; pageNo <= reader.NumPage(); pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNo)
		if page.V.IsNull() {
			continue
		}

		text, err := extractPageText(page)
		if err != nil {
			logger.Warn("[Loader] failed to extract PDF page",
				"file_id", doc.FileID, "page", pageNo, "error", err)
			continue
		}

		text = util.SanitizeText(text)
		if text == "" {
			continue
		}

		units = append(units, loader.TextUnit{
			Text:   text,
			Page:   pageNo,
			Source: doc.SourceName,
		})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("PDF %s yielded no extractable text", doc.SourceName)
	}

	return units, nil
}

// extractPageText isolates the library call so a panic in malformed
// content streams degrades to a skipped page.
func extractPageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page parser panicked: %v", r)
		}
	}()

	return page.GetPlainText(nil)
}
