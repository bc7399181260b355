// Package text loads plain-text files as a single text unit.
package text

import (
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"
)

type TextLoader struct{}

// NewTextLoader creates a loader for plain-text content.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load sanitizes the raw bytes and returns them as one text unit.
func (l *TextLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]loader.TextUnit, error) {
	text := util.SanitizeText(string(data))
	if text == "" {
		return nil, fmt.Errorf("text file %s is empty", doc.SourceName)
	}

	return []loader.TextUnit{{
		Text:   text,
		Source: doc.SourceName,
	}}, nil
}
