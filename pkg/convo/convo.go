// Package convo classifies whether a query is a follow-up to the prior
// turn. Layered heuristics (lexical cues, pronouns, brevity) decide
// directly when the signal is strong; borderline scores fall back to a
// model classification with the previous exchange as context.
package convo

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"
)

// Turn is one prior exchange of the conversation.
type Turn struct {
	Query  string
	Answer string
}

// Detection is the classification outcome. Method records which layer
// decided: heuristic, model, or default.
type Detection struct {
	IsFollowup bool
	Confidence float64
	Method     string
}

const (
	// directThreshold classifies as follow-up without a model call.
	directThreshold = 0.6

	// borderlineThreshold triggers the model fallback.
	borderlineThreshold = 0.3

	// briefWordLimit marks a query short enough to suggest it leans on
	// prior context.
	briefWordLimit = 8
)

var lexicalCues = []string{
	"what about",
	"how about",
	"tell me more",
	"more about",
	"what else",
	"anything else",
	"and then",
	"go on",
	"why is that",
	"expand on",
}

var pronounCues = []string{
	"it", "this", "that", "they", "them", "those", "these",
	"he", "she", "his", "her", "their",
}

type Detector struct {
	ai ai.CapabilityClient
}

// NewDetector creates a detector backed by the given capability client.
func NewDetector(client ai.CapabilityClient) *Detector {
	return &Detector{ai: client}
}

// Detect classifies the query against the prior turn. Without a prior
// turn nothing can be a follow-up.
func (d *Detector) Detect(ctx context.Context, query string, prev *Turn) Detection {
	if prev == nil || strings.TrimSpace(prev.Query) == "" {
		return Detection{Method: "default"}
	}

	score := HeuristicScore(query)
	if score >= directThreshold {
		return Detection{IsFollowup: true, Confidence: score, Method: "heuristic"}
	}
	if score < borderlineThreshold {
		return Detection{Confidence: score, Method: "heuristic"}
	}

	return d.classify(ctx, query, prev, score)
}

// HeuristicScore combines the lexical, pronoun and brevity signals
// into a score in [0,1].
func HeuristicScore(query string) float64 {
	folded := strings.ToLower(strings.TrimSpace(query))
	if folded == "" {
		return 0
	}

	score := 0.0

	for _, cue := range lexicalCues {
		if strings.Contains(folded, cue) {
			score += 0.4
			break
		}
	}

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, word := range words {
		if isPronoun(word) {
			score += 0.3
			break
		}
	}

	if len(words) > 0 && len(words) <= briefWordLimit {
		score += 0.2
	}

	return common.ClampConfidence(score)
}

func isPronoun(word string) bool {
	for _, p := range pronounCues {
		if word == p {
			return true
		}
	}
	return false
}

type followupWire struct {
	IsFollowup bool    `json:"is_followup" jsonschema_description:"Whether the new question depends on the previous exchange"`
	Confidence float64 `json:"confidence" jsonschema_description:"Classification certainty in [0,1]"`
}

// classify resolves a borderline score with a model call. Failure
// defaults to non-follow-up at the heuristic confidence.
func (d *Detector) classify(ctx context.Context, query string, prev *Turn, score float64) Detection {
	var wire followupWire
	err := d.ai.GenerateCompletionWithFormat(
		ctx,
		"followup_classification",
		"Whether a query is a follow-up to the previous exchange",
		fmt.Sprintf(ai.FollowupClassifyPrompt, prev.Query, prev.Answer, query),
		&wire,
	)
	if err != nil {
		logger.Warn("[Convo] follow-up classification failed", "error", err)
		return Detection{Confidence: score, Method: "default"}
	}

	return Detection{
		IsFollowup: wire.IsFollowup,
		Confidence: common.ClampConfidence(wire.Confidence),
		Method:     "model",
	}
}

// ContextFor renders the prior turn as rewrite context.
func ContextFor(prev *Turn) string {
	if prev == nil {
		return ""
	}
	return fmt.Sprintf("Previous question: %s\nPrevious answer: %s", prev.Query, prev.Answer)
}
