package vision

import (
	"context"
	"image/color"
	"strings"
	"testing"

	"github.com/docsage-ai/docsage/pkg/ai/aitest"
)

func chartImageDouble() *aitest.Double {
	double := aitest.NewDouble()
	double.Describe = func(prompt string) string {
		switch {
		case strings.Contains(prompt, "handwriting"):
			return "Q3 Revenue Overview"
		case strings.Contains(prompt, "printed or typeset"):
			return "Q3 Revenue Overview\nRevenue by region"
		case strings.Contains(prompt, "chart"):
			return "A bar chart of revenue per region, north highest."
		default:
			return "A bar chart on a slide."
		}
	}
	double.Structured["chart_finding"] = `{
		"contains_chart": true,
		"chart": {
			"chart_type": "bar",
			"x_axis": "region",
			"y_axis": "revenue",
			"data_points": ["north: 300", "south: 200"],
			"trend": "north leads"
		}
	}`
	double.Structured["visible_entities"] = `{
		"entities": [
			{"name": "bar chart", "kind": "chart", "confidence": 0.95},
			{"name": "", "kind": "noise", "confidence": 2.0}
		]
	}`
	return double
}

func TestAnalyzeMergesAllPasses(t *testing.T) {
	double := chartImageDouble()
	analyzer := NewAnalyzer(double)

	// the canvas is blank so the shape pass contributes nothing
	data := encodePNG(t, whiteCanvas(50, 50))

	analysis, err := analyzer.Analyze(context.Background(), data, "image/png", "q3.png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !strings.Contains(analysis.OCRText, "Q3 Revenue Overview") {
		t.Errorf("OCR text = %q", analysis.OCRText)
	}
	if !strings.Contains(analysis.OCRText, "Revenue by region") {
		t.Errorf("secondary OCR line missing: %q", analysis.OCRText)
	}

	if analysis.Chart == nil || analysis.Chart.ChartType != "bar" {
		t.Fatalf("chart = %+v", analysis.Chart)
	}

	if len(analysis.Entities) != 1 {
		t.Fatalf("entities = %+v", analysis.Entities)
	}
	if analysis.Entities[0].Name != "bar chart" {
		t.Errorf("entity name = %q", analysis.Entities[0].Name)
	}

	wantContributions := []string{"ocr", "chart", "entities"}
	if len(analysis.Contributions) != len(wantContributions) {
		t.Fatalf("contributions = %v", analysis.Contributions)
	}
	for i, want := range wantContributions {
		if analysis.Contributions[i] != want {
			t.Errorf("contribution %d = %q, want %q", i, analysis.Contributions[i], want)
		}
	}

	for _, section := range []string{"Image q3.png", "Text content:", "Chart analysis:", "Visible entities:"} {
		if !strings.Contains(analysis.Summary, section) {
			t.Errorf("summary missing %q:\n%s", section, analysis.Summary)
		}
	}
}

func TestAnalyzeDegradesWhenModelFails(t *testing.T) {
	double := aitest.NewDouble()
	double.Err = context.DeadlineExceeded
	analyzer := NewAnalyzer(double)

	// every model pass fails and the canvas has no shapes, so there is
	// nothing to retrieve for this image
	data := encodePNG(t, whiteCanvas(50, 50))
	if _, err := analyzer.Analyze(context.Background(), data, "image/png", "blank.png"); err == nil {
		t.Fatal("expected error when no pass produces content")
	}
}

func TestAnalyzeShapesOnly(t *testing.T) {
	double := aitest.NewDouble()
	double.Describe = func(string) string { return "" }

	img := whiteCanvas(100, 100)
	for i := 10; i <= 90; i++ {
		img.Set(i, 20, color.Black)
		img.Set(i, 80, color.Black)
		img.Set(20, i, color.Black)
		img.Set(80, i, color.Black)
	}

	analysis, err := NewAnalyzer(double).Analyze(context.Background(), encodePNG(t, img), "image/png", "diagram.png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(analysis.Contributions) != 1 || analysis.Contributions[0] != "shapes" {
		t.Fatalf("contributions = %v", analysis.Contributions)
	}
	if !strings.Contains(analysis.Summary, "diagram-like content") {
		t.Errorf("summary = %q", analysis.Summary)
	}
}
