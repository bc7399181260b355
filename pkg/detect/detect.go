package detect

import (
	"path/filepath"
	"strings"

	"github.com/docsage-ai/docsage/pkg/common"
)

var extensions = map[string]common.FileCategory{
	".pdf":      common.CategoryPDF,
	".txt":      common.CategoryText,
	".md":       common.CategoryText,
	".markdown": common.CategoryText,
	".docx":     common.CategoryDOCX,
	".csv":      common.CategoryCSV,
	".png":      common.CategoryImage,
	".jpg":      common.CategoryImage,
	".jpeg":     common.CategoryImage,
	".gif":      common.CategoryImage,
	".bmp":      common.CategoryImage,
	".tiff":     common.CategoryImage,
	".webp":     common.CategoryImage,
}

var contentTypes = []struct {
	substring string
	category  common.FileCategory
}{
	{"application/pdf", common.CategoryPDF},
	{"wordprocessingml", common.CategoryDOCX},
	{"text/csv", common.CategoryCSV},
	{"image/", common.CategoryImage},
	{"text/", common.CategoryText},
}

// Detect classifies a file into a processing category. The file
// extension takes priority; the declared content type is consulted as a
// fallback via substring matching. Unknown combinations yield
// CategoryUnsupported, which callers must treat as a skip, not an error.
func Detect(name string, contentType string) common.FileCategory {
	ext := strings.ToLower(filepath.Ext(name))
	if category, ok := extensions[ext]; ok {
		return category
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" {
		for _, ct := range contentTypes {
			if strings.Contains(contentType, ct.substring) {
				return ct.category
			}
		}
	}

	return common.CategoryUnsupported
}

// Supported reports whether the category can be processed by a loader.
func Supported(category common.FileCategory) bool {
	return category != common.CategoryUnsupported && category != ""
}
