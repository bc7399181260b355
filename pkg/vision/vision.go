// Package vision turns an image into one retrievable text unit: merged
// OCR output, geometric shape detection, chart extraction and visible
// entity detection are combined into a structured summary plus a
// metadata bundle recording which analyses contributed.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// nearDuplicateThreshold marks a secondary OCR block as a duplicate of
// an already included block.
const nearDuplicateThreshold = 0.8

// ChartInfo is the structured result of chart detection.
type ChartInfo struct {
	ChartType  string   `json:"chart_type" jsonschema_description:"Kind of chart, e.g. bar, line, pie"`
	XAxis      string   `json:"x_axis" jsonschema_description:"Label of the horizontal axis"`
	YAxis      string   `json:"y_axis" jsonschema_description:"Label of the vertical axis"`
	DataPoints []string `json:"data_points" jsonschema_description:"Readable data points or series values"`
	Trend      string   `json:"trend" jsonschema_description:"Overall trend visible in the data"`
}

// DetectedEntity is one person, object or structure visible in the image.
type DetectedEntity struct {
	Name       string  `json:"name" jsonschema_description:"Short name of the visible thing"`
	Kind       string  `json:"kind" jsonschema_description:"What kind of thing it is"`
	Confidence float64 `json:"confidence" jsonschema_description:"Certainty that it is actually present, 0 to 1"`
}

// Analysis bundles every sub-result of one image. Contributions lists
// which analyses produced content, so downstream consumers can tell a
// text-only scan from a chart.
type Analysis struct {
	OCRText  string
	Shapes   ShapeReport
	Chart    *ChartInfo
	Entities []DetectedEntity

	Summary       string
	Contributions []string
}

// Analyzer runs the multimodal analysis passes. Failures of individual
// passes degrade to missing sections, never to a failed file.
type Analyzer struct {
	ai ai.CapabilityClient
}

// NewAnalyzer creates an analyzer backed by the given capability client.
func NewAnalyzer(client ai.CapabilityClient) *Analyzer {
	return &Analyzer{ai: client}
}

// Analyze runs OCR fusion, shape detection and the vision-model passes
// concurrently and merges their results.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, mimeType, sourceName string) (Analysis, error) {
	payload := ai.ImagePayload{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}

	var result Analysis
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		text, err := a.fuseOCR(gCtx, payload)
		if err != nil {
			logger.Warn("[Vision] OCR failed", "source", sourceName, "error", err)
			return nil
		}
		result.OCRText = text
		return nil
	})

	g.Go(func() error {
		report, err := DetectShapes(data)
		if err != nil {
			logger.Warn("[Vision] shape detection failed", "source", sourceName, "error", err)
			return nil
		}
		result.Shapes = report
		return nil
	})

	g.Go(func() error {
		chart, err := a.detectChart(gCtx, payload)
		if err != nil {
			logger.Warn("[Vision] chart detection failed", "source", sourceName, "error", err)
			return nil
		}
		result.Chart = chart
		return nil
	})

	g.Go(func() error {
		entities, err := a.detectEntities(gCtx, payload)
		if err != nil {
			logger.Warn("[Vision] entity detection failed", "source", sourceName, "error", err)
			return nil
		}
		result.Entities = entities
		return nil
	})

	if err := g.Wait(); err != nil {
		return Analysis{}, err
	}

	result.Summary, result.Contributions = buildSummary(sourceName, result)
	if result.Summary == "" {
		return Analysis{}, fmt.Errorf("image %s produced no analyzable content", sourceName)
	}

	return result, nil
}

// buildSummary assembles the section-per-analysis summary text and the
// contribution list in a fixed order.
func buildSummary(sourceName string, r Analysis) (string, []string) {
	var (
		sb            strings.Builder
		contributions []string
	)

	fmt.Fprintf(&sb, "Image %s\n", sourceName)

	if r.OCRText != "" {
		contributions = append(contributions, "ocr")
		fmt.Fprintf(&sb, "\nText content:\n%s\n", r.OCRText)
	}

	if r.Shapes.LikelyDiagram {
		contributions = append(contributions, "shapes")
		fmt.Fprintf(&sb, "\nStructure: %s\n", r.Shapes.Describe())
	}

	if r.Chart != nil && r.Chart.ChartType != "" {
		contributions = append(contributions, "chart")
		fmt.Fprintf(&sb, "\nChart analysis:\n%s\n", describeChart(*r.Chart))
	}

	if len(r.Entities) > 0 {
		contributions = append(contributions, "entities")
		sb.WriteString("\nVisible entities:\n")
		for _, e := range r.Entities {
			fmt.Fprintf(&sb, "- %s (%s, confidence %.2f)\n", e.Name, e.Kind, e.Confidence)
		}
	}

	if len(contributions) == 0 {
		return "", nil
	}
	return strings.TrimRight(sb.String(), "\n"), contributions
}

func describeChart(c ChartInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Type: %s\n", c.ChartType)
	if c.XAxis != "" || c.YAxis != "" {
		fmt.Fprintf(&sb, "Axes: x=%s, y=%s\n", c.XAxis, c.YAxis)
	}
	if len(c.DataPoints) > 0 {
		fmt.Fprintf(&sb, "Data points: %s\n", strings.Join(c.DataPoints, "; "))
	}
	if c.Trend != "" {
		fmt.Fprintf(&sb, "Trend: %s\n", c.Trend)
	}
	return strings.TrimRight(sb.String(), "\n")
}
