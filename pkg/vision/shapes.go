package vision

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// inkLuminance marks a pixel as drawn content.
	inkLuminance = 128

	// lineCoverage is the fraction of a row/column that must be ink to
	// count as a straight line.
	lineCoverage = 0.4

	// maxScanDim bounds the per-axis scan resolution for large images.
	maxScanDim = 512
)

// ShapeReport summarizes the geometric structure found in an image.
type ShapeReport struct {
	Width  int
	Height int

	HorizontalLines int
	VerticalLines   int

	// LikelyDiagram is set when enough straight lines are present to
	// suggest boxes, tables or a diagram rather than a photo.
	LikelyDiagram bool
}

// Describe renders the report as a short human-readable sentence for
// the analysis summary.
func (r ShapeReport) Describe() string {
	return fmt.Sprintf(
		"diagram-like content with %d horizontal and %d vertical line structures (%dx%d px)",
		r.HorizontalLines, r.VerticalLines, r.Width, r.Height,
	)
}

// DetectShapes decodes the image and counts straight line structures.
// It supports png, jpeg, gif, bmp, tiff and webp input.
func DetectShapes(data []byte) (ShapeReport, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ShapeReport{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	report := ShapeReport{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	if report.Width == 0 || report.Height == 0 {
		return report, nil
	}

	stepX := (report.Width + maxScanDim - 1) / maxScanDim
	stepY := (report.Height + maxScanDim - 1) / maxScanDim
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}

	cols := (report.Width + stepX - 1) / stepX
	rows := (report.Height + stepY - 1) / stepY

	// ink[y][x] over the downsampled grid
	ink := make([][]bool, rows)
	for gy := 0; gy < rows; gy++ {
		ink[gy] = make([]bool, cols)
		for gx := 0; gx < cols; gx++ {
			x := bounds.Min.X + gx*stepX
			y := bounds.Min.Y + gy*stepY
			ink[gy][gx] = luminance(img, x, y) < inkLuminance
		}
	}

	report.HorizontalLines = countRuns(rows, cols, func(a, b int) bool { return ink[a][b] })
	report.VerticalLines = countRuns(cols, rows, func(a, b int) bool { return ink[b][a] })
	report.LikelyDiagram = report.HorizontalLines >= 2 && report.VerticalLines >= 2

	return report, nil
}

// countRuns counts outer indices whose longest contiguous ink run covers
// at least lineCoverage of the inner axis. Adjacent qualifying indices
// collapse into one line so thick strokes are not double counted.
func countRuns(outer, inner int, at func(outer, inner int) bool) int {
	lines := 0
	prevQualified := false

	for o := 0; o < outer; o++ {
		longest, run := 0, 0
		for i := 0; i < inner; i++ {
			if at(o, i) {
				run++
				if run > longest {
					longest = run
				}
			} else {
				run = 0
			}
		}

		qualified := float64(longest) >= lineCoverage*float64(inner)
		if qualified && !prevQualified {
			lines++
		}
		prevQualified = qualified
	}

	return lines
}

func luminance(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	// 16-bit channels scaled down to 8-bit luma
	return int((299*r + 587*g + 114*b) / 1000 >> 8)
}
