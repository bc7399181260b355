package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// documentXMLMax bounds the uncompressed size of word/document.xml to
// keep hostile archives from exhausting memory.
const documentXMLMax = 50 << 20

var collapseNewlines = regexp.MustCompile(`\n{3,}`)

// pageWriter accumulates text and starts a new page on rendered page
// breaks. Breaks that arrive before any content do not create an empty
// leading page.
type pageWriter struct {
	pages   []string
	current strings.Builder
}

func (w *pageWriter) writeString(s string) { w.current.WriteString(s) }
func (w *pageWriter) writeByte(b byte)     { w.current.WriteByte(b) }

func (w *pageWriter) endLine() {
	s := w.current.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		w.current.WriteByte('\n')
	}
}

func (w *pageWriter) pageBreak() {
	if strings.TrimSpace(w.current.String()) == "" {
		return
	}
	w.flush()
}

func (w *pageWriter) flush() {
	text := strings.TrimSpace(w.current.String())
	w.current.Reset()
	if text == "" {
		return
	}
	text = collapseNewlines.ReplaceAllString(text, "\n\n")
	w.pages = append(w.pages, text)
}

// extractPages walks word/document.xml and returns the visible text of
// each rendered page.
func extractPages(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a valid docx archive: %w", err)
	}

	var docEntry *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docEntry = f
			break
		}
	}
	if docEntry == nil {
		return nil, fmt.Errorf("document.xml missing from archive")
	}
	if docEntry.UncompressedSize64 > documentXMLMax {
		return nil, fmt.Errorf("document.xml too large: %d bytes", docEntry.UncompressedSize64)
	}

	rc, err := docEntry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	return walkDocument(xml.NewDecoder(io.LimitReader(rc, int64(documentXMLMax))))
}

func walkDocument(dec *xml.Decoder) ([]string, error) {
	var (
		w        pageWriter
		inText   bool
		delDepth int
		inTable  bool
		cellIdx  int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed document XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "del":
				delDepth++
			case "t":
				inText = true
			case "tab":
				if delDepth == 0 {
					w.writeByte('\t')
				}
			case "br":
				if delDepth != 0 {
					break
				}
				if breakType(t) == "page" {
					w.pageBreak()
				} else {
					w.writeByte('\n')
				}
			case "cr":
				if delDepth == 0 {
					w.writeByte('\n')
				}
			case "lastRenderedPageBreak":
				if delDepth == 0 {
					w.pageBreak()
				}
			case "noBreakHyphen":
				if delDepth == 0 {
					w.writeByte('-')
				}
			case "tbl":
				inTable = true
				cellIdx = 0
				w.endLine()
			case "tr":
				cellIdx = 0
			case "tc":
				if inTable && delDepth == 0 {
					if cellIdx > 0 {
						w.writeByte('\t')
					}
					cellIdx++
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				// inside tables, rows separate lines and tabs separate
				// cells; paragraph breaks would split cells apart
				if delDepth == 0 && !inTable {
					w.writeByte('\n')
				}
			case "tr":
				if delDepth == 0 {
					w.writeByte('\n')
				}
			case "tbl":
				inTable = false
				if delDepth == 0 {
					w.writeByte('\n')
				}
			case "del":
				if delDepth > 0 {
					delDepth--
				}
			}

		case xml.CharData:
			if delDepth == 0 && inText {
				w.writeString(string(t))
			}
		}
	}

	w.flush()
	return w.pages, nil
}

func breakType(el xml.StartElement) string {
	for _, attr := range el.Attr {
		if attr.Name.Local == "type" {
			return attr.Value
		}
	}
	return ""
}
