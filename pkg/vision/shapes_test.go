package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func whiteCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestDetectShapesRectangle(t *testing.T) {
	img := whiteCanvas(100, 100)
	// rectangle outline from (10,10) to (90,90)
	for i := 10; i <= 90; i++ {
		img.Set(i, 10, color.Black)
		img.Set(i, 90, color.Black)
		img.Set(10, i, color.Black)
		img.Set(90, i, color.Black)
	}

	report, err := DetectShapes(encodePNG(t, img))
	if err != nil {
		t.Fatalf("DetectShapes: %v", err)
	}
	if report.Width != 100 || report.Height != 100 {
		t.Errorf("dimensions = %dx%d", report.Width, report.Height)
	}
	if report.HorizontalLines != 2 {
		t.Errorf("horizontal lines = %d, want 2", report.HorizontalLines)
	}
	if report.VerticalLines != 2 {
		t.Errorf("vertical lines = %d, want 2", report.VerticalLines)
	}
	if !report.LikelyDiagram {
		t.Error("rectangle should register as diagram-like")
	}
}

func TestDetectShapesBlankImage(t *testing.T) {
	report, err := DetectShapes(encodePNG(t, whiteCanvas(50, 50)))
	if err != nil {
		t.Fatalf("DetectShapes: %v", err)
	}
	if report.LikelyDiagram {
		t.Error("blank image should not register as diagram-like")
	}
}

func TestDetectShapesInvalidInput(t *testing.T) {
	if _, err := DetectShapes([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}
