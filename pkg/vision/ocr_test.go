package vision

import (
	"strings"
	"testing"
)

func TestMergeOCR(t *testing.T) {
	tests := []struct {
		name      string
		primary   string
		secondary string
		want      []string
		wantNot   []string
	}{
		{
			name:      "near duplicate suppressed",
			primary:   "Quarterly revenue grew 12%",
			secondary: "Quarterly revenue grew 12 %",
			want:      []string{"Quarterly revenue grew 12%"},
			wantNot:   []string{"12 %"},
		},
		{
			name:      "new content appended",
			primary:   "Meeting notes from March",
			secondary: "Action items: review budget",
			want:      []string{"Meeting notes from March", "Action items: review budget"},
		},
		{
			name:      "empty primary keeps secondary",
			primary:   "",
			secondary: "Printed label",
			want:      []string{"Printed label"},
		},
		{
			name:    "empty secondary keeps primary",
			primary: "Handwritten note",
			want:    []string{"Handwritten note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeOCR(tt.primary, tt.secondary, nearDuplicateThreshold)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("merged output missing %q:\n%s", want, got)
				}
			}
			for _, not := range tt.wantNot {
				if strings.Contains(got, not) {
					t.Errorf("merged output should not contain %q:\n%s", not, got)
				}
			}
		})
	}
}

func TestMergeOCRPrimaryWins(t *testing.T) {
	got := MergeOCR("line one\nline two", "line one\nline three", nearDuplicateThreshold)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 merged lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "line one" || lines[1] != "line two" {
		t.Errorf("primary order not preserved: %q", got)
	}
}
