// Package csv loads tabular files with a dual strategy: one holistic
// overview unit for aggregate questions, plus one unit per row for
// record-level questions when the table is small enough to index fully.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"
)

const (
	// maxRowUnits bounds per-row indexing; larger tables get only the
	// overview so the index does not grow with row count.
	maxRowUnits = 1000

	sampleRowCount     = 5
	distinctValueLimit = 8
)

type CSVLoader struct{}

// NewCSVLoader creates a loader for CSV content.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

// Load parses the CSV and returns the overview unit followed by per-row
// units (rows numbered from 1) when the table has at most maxRowUnits
// data rows.
func (l *CSVLoader) Load(ctx context.Context, doc common.Document, data []byte) ([]loader.TextUnit, error) {
	records := parseRecords(data)
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file %s contains no valid rows", doc.SourceName)
	}

	header := records[0]
	rows := records[1:]

	units := []loader.TextUnit{{
		Text:   buildOverview(doc.SourceName, header, rows),
		Source: doc.SourceName,
	}}

	if len(rows) > 0 && len(rows) <= maxRowUnits {
		for i, row := range rows {
			units = append(units, loader.TextUnit{
				Text:   rowText(doc.SourceName, header, row, i+1),
				Row:    i + 1,
				Source: doc.SourceName,
			})
		}
	}

	return units, nil
}

// parseRecords reads all non-empty records, tolerating ragged rows and
// sloppy quoting. Malformed lines are skipped rather than failing the file.
func parseRecords(data []byte) [][]string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		empty := true
		for _, field := range record {
			if strings.TrimSpace(field) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		records = append(records, record)
	}

	return records
}

func buildOverview(source string, header []string, rows [][]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CSV file %s\n", source)
	fmt.Fprintf(&sb, "Rows: %d\n", len(rows))
	fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(header, ", "))

	for col, name := range header {
		values := columnValues(rows, col)
		if len(values) == 0 {
			continue
		}

		if min, max, mean, ok := numericStats(values); ok {
			fmt.Fprintf(&sb, "Column %s: numeric, min %s, max %s, mean %s\n",
				name, formatNumber(min), formatNumber(max), formatNumber(roundTo(mean, 2)))
			continue
		}

		distinct := distinctValues(values)
		if len(distinct) > distinctValueLimit {
			fmt.Fprintf(&sb, "Column %s: %d distinct values\n", name, len(distinct))
		} else {
			fmt.Fprintf(&sb, "Column %s: values %s\n", name, strings.Join(distinct, ", "))
		}
	}

	sb.WriteString("Sample rows:\n")
	for i, row := range rows {
		if i >= sampleRowCount {
			break
		}
		fmt.Fprintf(&sb, "%s\n", joinFields(header, row))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func rowText(source string, header, row []string, rowNo int) string {
	return fmt.Sprintf("Row %d of %s: %s", rowNo, source, joinFields(header, row))
}

// joinFields renders a row as "col=value" pairs, falling back to the
// column index when the header is shorter than the row.
func joinFields(header, row []string) string {
	parts := make([]string, 0, len(row))
	for i, field := range row {
		name := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			name = strings.TrimSpace(header[i])
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, strings.TrimSpace(field)))
	}
	return strings.Join(parts, ", ")
}

func columnValues(rows [][]string, col int) []string {
	var values []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// numericStats reports min, max and mean when every non-empty value in
// the column parses as a number.
func numericStats(values []string) (min, max, mean float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, 0, false
	}

	var sum float64
	for i, raw := range values {
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return 0, 0, 0, false
		}
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
		sum += v
	}

	return min, max, sum / float64(len(values)), true
}

func distinctValues(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var distinct []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)
	return distinct
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
