package fusion

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"
)

var summaryMarkers = []string{
	"summarize",
	"summarise",
	"summary",
	"overview",
	"what is this document about",
	"what is this file about",
	"main points",
	"key points",
	"tl;dr",
}

// stopwords excluded from graph lookup terms. Short function words
// would match everything via the fuzzy CONTAINS fallback.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "do": {}, "does": {}, "did": {}, "have": {}, "has": {},
	"had": {}, "what": {}, "which": {}, "who": {}, "whom": {}, "whose": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "about": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "from": {}, "with": {},
	"by": {}, "and": {}, "or": {}, "not": {}, "no": {}, "it": {}, "its": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "me": {}, "my": {},
	"you": {}, "your": {}, "we": {}, "our": {}, "they": {}, "their": {},
	"he": {}, "she": {}, "his": {}, "her": {}, "tell": {}, "show": {},
	"list": {}, "give": {}, "can": {}, "could": {}, "would": {}, "should": {},
	"will": {}, "there": {}, "all": {}, "any": {}, "more": {}, "most": {},
	"some": {}, "between": {}, "into": {}, "than": {}, "then": {}, "also": {},
}

// rewrite turns the raw question into a retrieval query. Summary-style
// questions on a single file skip rewriting and widen the retrieval
// instead, because "summarize this" carries no searchable terms and the
// answer needs broad coverage of the file rather than a focused match.
func (e *Engine) rewrite(
	ctx context.Context,
	query string,
	scope common.Scope,
	prevCtx string,
	th Thresholds,
) (string, int) {
	if scope.Level == common.ScopeFile && isSummaryQuery(query) {
		return query, th.SummaryTopK
	}

	rewritten, err := e.ai.GenerateCompletion(
		ctx,
		fmt.Sprintf(ai.RewritePrompt, prevCtx, query),
	)
	if err != nil {
		logger.Warn("[Fusion] query rewrite failed, using original", "error", err)
		return query, th.TopK
	}

	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if rewritten == "" {
		return query, th.TopK
	}
	return rewritten, th.TopK
}

// isSummaryQuery detects whole-document summary requests.
func isSummaryQuery(query string) bool {
	folded := strings.ToLower(query)
	for _, marker := range summaryMarkers {
		if strings.Contains(folded, marker) {
			return true
		}
	}
	return false
}

// queryTerms extracts the content words used as graph lookup seeds.
// Adjacent capitalized words in the original query are kept joined so
// multi-word names ("Marie Curie") survive as one term.
func queryTerms(query string) []string {
	var (
		terms   []string
		seen    = make(map[string]struct{})
		pending []string
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		term := strings.Join(pending, " ")
		pending = nil
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		terms = append(terms, term)
	}

	for _, raw := range strings.Fields(query) {
		word := strings.Trim(raw, ".,;:!?\"'()[]{}")
		if word == "" {
			flush()
			continue
		}
		if _, stop := stopwords[strings.ToLower(word)]; stop {
			flush()
			continue
		}
		if isCapitalized(word) && len(pending) > 0 && isCapitalized(pending[len(pending)-1]) {
			pending = append(pending, word)
			continue
		}
		flush()
		pending = append(pending, word)
	}
	flush()

	return terms
}

func isCapitalized(word string) bool {
	return len(word) > 0 && word[0] >= 'A' && word[0] <= 'Z'
}
