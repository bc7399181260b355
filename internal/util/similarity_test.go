package util

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{
			name: "identical",
			a:    "Acme Corporation",
			b:    "acme corporation",
			min:  1.0,
			max:  1.0,
		},
		{
			name: "empty against value",
			a:    "",
			b:    "anything",
			min:  0.0,
			max:  0.0,
		},
		{
			name: "close variants",
			a:    "artificial intelligence",
			b:    "artificial inteligence",
			min:  0.9,
			max:  1.0,
		},
		{
			name: "unrelated",
			a:    "quarterly revenue",
			b:    "zebra",
			min:  0.0,
			max:  0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestContainsFuzzy(t *testing.T) {
	text := "The Q3 report was presented by Maria Schneider at the Berlin office."

	tests := []struct {
		name   string
		phrase string
		minSim float64
		want   bool
	}{
		{
			name:   "verbatim match",
			phrase: "Maria Schneider",
			minSim: 0.85,
			want:   true,
		},
		{
			name:   "case insensitive",
			phrase: "berlin office",
			minSim: 0.85,
			want:   true,
		},
		{
			name:   "minor typo",
			phrase: "Maria Schnieder",
			minSim: 0.85,
			want:   true,
		},
		{
			name:   "not grounded",
			phrase: "Munich headquarters",
			minSim: 0.85,
			want:   false,
		},
		{
			name:   "empty phrase",
			phrase: "",
			minSim: 0.85,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContainsFuzzy(text, tt.phrase, tt.minSim)
			if got != tt.want {
				t.Errorf("ContainsFuzzy(%q) = %v, want %v", tt.phrase, got, tt.want)
			}
		})
	}
}
