package convo

import (
	"context"
	"testing"

	"github.com/docsage-ai/docsage/pkg/ai/aitest"
)

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		min   float64
		max   float64
	}{
		{"pronoun and brevity", "What about it?", 0.6, 1.0},
		{"lexical cue", "tell me more about the methodology used in the second study", 0.4, 0.5},
		{"self contained", "Summarize the quarterly sales figures for the northern region of the company", 0.0, 0.0},
		{"brief but standalone", "Summarize sales figures", 0.2, 0.2},
		{"empty", "", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicScore(tt.query)
			if got < tt.min || got > tt.max {
				t.Errorf("HeuristicScore(%q) = %v, want in [%v, %v]", tt.query, got, tt.min, tt.max)
			}
		})
	}
}

func TestDetectPronounBrevity(t *testing.T) {
	double := aitest.NewDouble()
	detector := NewDetector(double)
	prev := &Turn{Query: "Summarize the Q3 report", Answer: "The Q3 report shows growth."}

	det := detector.Detect(context.Background(), "What about it?", prev)
	if !det.IsFollowup {
		t.Fatal("pronoun + brevity should classify as follow-up")
	}
	if det.Confidence < 0.4 {
		t.Errorf("confidence = %v, want >= 0.4", det.Confidence)
	}
	if det.Method != "heuristic" {
		t.Errorf("method = %q, expected direct heuristic classification", det.Method)
	}
	if len(double.Calls) != 0 {
		t.Errorf("strong heuristic signal must not call the model: %v", double.Calls)
	}
}

func TestDetectNoPriorTurn(t *testing.T) {
	det := NewDetector(aitest.NewDouble()).Detect(context.Background(), "What about it?", nil)
	if det.IsFollowup {
		t.Error("nothing is a follow-up without a prior turn")
	}
}

func TestDetectBorderlineUsesModel(t *testing.T) {
	double := aitest.NewDouble()
	double.Structured["followup_classification"] = `{"is_followup": true, "confidence": 0.8}`
	prev := &Turn{Query: "Summarize the Q3 report", Answer: "It shows growth."}

	// a lexical cue alone scores 0.4: borderline
	det := NewDetector(double).Detect(context.Background(),
		"tell me more about the revenue distribution across all the regional markets mentioned", prev)
	if det.Method != "model" {
		t.Fatalf("method = %q, want model fallback", det.Method)
	}
	if !det.IsFollowup || det.Confidence != 0.8 {
		t.Errorf("detection = %+v", det)
	}
}

func TestDetectModelFailureDefaultsToStandalone(t *testing.T) {
	double := aitest.NewDouble()
	double.Err = context.DeadlineExceeded
	prev := &Turn{Query: "Summarize the Q3 report", Answer: "It shows growth."}

	det := NewDetector(double).Detect(context.Background(),
		"tell me more about the revenue distribution across all the regional markets mentioned", prev)
	if det.IsFollowup {
		t.Error("model failure must default to non-follow-up")
	}
	if det.Method != "default" {
		t.Errorf("method = %q", det.Method)
	}
}

func TestContextFor(t *testing.T) {
	if got := ContextFor(nil); got != "" {
		t.Errorf("nil turn context = %q", got)
	}
	got := ContextFor(&Turn{Query: "q", Answer: "a"})
	if got != "Previous question: q\nPrevious answer: a" {
		t.Errorf("context = %q", got)
	}
}
