package detect

import (
	"testing"

	"github.com/docsage-ai/docsage/pkg/common"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		want        common.FileCategory
	}{
		{
			name:     "pdf by extension",
			fileName: "report.pdf",
			want:     common.CategoryPDF,
		},
		{
			name:     "extension beats content type",
			fileName: "notes.txt",
			// Misdeclared content type must not override the extension.
			contentType: "application/pdf",
			want:        common.CategoryText,
		},
		{
			name:        "docx by content type",
			fileName:    "contract",
			contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			want:        common.CategoryDOCX,
		},
		{
			name:     "csv by extension",
			fileName: "sales.csv",
			want:     common.CategoryCSV,
		},
		{
			name:        "image by content type",
			fileName:    "photo",
			contentType: "image/jpeg",
			want:        common.CategoryImage,
		},
		{
			name:     "markdown is text",
			fileName: "README.md",
			want:     common.CategoryText,
		},
		{
			name:     "uppercase extension",
			fileName: "SCAN.PDF",
			want:     common.CategoryPDF,
		},
		{
			name:        "unknown yields unsupported",
			fileName:    "archive.zip",
			contentType: "application/zip",
			want:        common.CategoryUnsupported,
		},
		{
			name:     "no extension no content type",
			fileName: "mystery",
			want:     common.CategoryUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.fileName, tt.contentType)
			if got != tt.want {
				t.Errorf("Detect(%q, %q) = %v, want %v", tt.fileName, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	if Supported(common.CategoryUnsupported) {
		t.Error("CategoryUnsupported must not be supported")
	}
	if !Supported(common.CategoryCSV) {
		t.Error("CategoryCSV must be supported")
	}
}
