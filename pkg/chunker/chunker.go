// Package chunker splits loaded text units into bounded, overlapping
// spans. Span size and overlap are tuned per file category; sentence
// boundaries are respected for prose and row boundaries for tables, so
// a chunk never cuts a structural unit in half.
package chunker

import (
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/loader"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoder is the tiktoken encoding used for token budgets.
const DefaultEncoder = "cl100k_base"

// Config sets the token budget of one file category.
type Config struct {
	SpanTokens    int
	OverlapTokens int
}

// ConfigFor returns the chunking budget for a category. Tabular
// overviews get larger spans than prose since their lines are dense
// and self-contained; images pass through as one span.
func ConfigFor(category common.FileCategory) Config {
	switch category {
	case common.CategoryCSV:
		return Config{SpanTokens: 500, OverlapTokens: 0}
	case common.CategoryPDF, common.CategoryDOCX:
		return Config{SpanTokens: 300, OverlapTokens: 50}
	default:
		return Config{SpanTokens: 350, OverlapTokens: 50}
	}
}

type Chunker struct {
	countTokens func(string) int
}

// New creates a chunker using the given tiktoken encoding name.
func New(encoder string) (*Chunker, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoder, err)
	}
	return &Chunker{
		countTokens: func(s string) int { return len(enc.Encode(s, nil, nil)) },
	}, nil
}

// Chunk turns the loaded units of one document into numbered chunks.
// Per-row CSV units and image summaries become one chunk each; prose
// units are split at sentence boundaries within the token budget.
func (c *Chunker) Chunk(doc common.Document, units []loader.TextUnit) ([]common.Chunk, error) {
	cfg := ConfigFor(doc.Category)

	var chunks []common.Chunk
	for _, unit := range units {
		text := strings.TrimSpace(unit.Text)
		if text == "" {
			continue
		}

		var spans []string
		switch {
		case doc.Category == common.CategoryImage:
			spans = []string{text}
		case unit.Row > 0:
			// row units are already atomic
			spans = []string{text}
		default:
			spans = c.splitSpans(text, cfg)
		}

		for _, span := range spans {
			span = strings.TrimSpace(span)
			if span == "" {
				continue
			}

			id, err := gonanoid.New()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, common.Chunk{
				ID:       id,
				FileID:   doc.FileID,
				FolderID: doc.FolderID,
				ChunkNo:  len(chunks) + 1,
				Page:     unit.Page,
				Source:   unit.Source,
				Text:     span,
			})
		}
	}

	return chunks, nil
}

// splitSpans accumulates sentences until the span budget is reached,
// then starts the next span with the trailing sentences that fit the
// overlap budget.
func (c *Chunker) splitSpans(text string, cfg Config) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	tokens := make([]int, len(sentences))
	for i, s := range sentences {
		tokens[i] = c.countTokens(s)
	}

	var (
		spans   []string
		current []int // sentence indexes of the span being built
		count   int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, idx := range current {
			parts[i] = sentences[idx]
		}
		spans = append(spans, strings.Join(parts, " "))
	}

	for i := range sentences {
		if count+tokens[i] > cfg.SpanTokens && len(current) > 0 {
			flush()

			// carry trailing sentences into the next span as overlap
			var carry []int
			carryTokens := 0
			for j := len(current) - 1; j >= 0; j-- {
				idx := current[j]
				if carryTokens+tokens[idx] > cfg.OverlapTokens {
					break
				}
				carry = append([]int{idx}, carry...)
				carryTokens += tokens[idx]
			}
			current = carry
			count = carryTokens
		}

		current = append(current, i)
		count += tokens[i]
	}
	flush()

	return spans
}

// SplitSentences breaks prose into sentences. Blank lines always end
// the current sentence; within a line, terminal punctuation ends one
// unless it closes a numbered listing like "1.".
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	endCurrent := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			endCurrent()
			continue
		}

		for _, part := range splitLine(line) {
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(part)
			if endsSentence(part) {
				endCurrent()
			}
		}
	}
	endCurrent()

	return sentences
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"')]}`)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// splitLine cuts one line at sentence-ending punctuation, keeping
// closing quotes and brackets attached and skipping numbered listings.
func splitLine(line string) []string {
	var parts []string
	var current strings.Builder

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}

		// "1. item" style listings are not sentence ends
		if runes[i] == '.' && i > 0 && isDigit(runes[i-1]) && i+1 < len(runes) && runes[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(runes) && isClosing(runes[j]) {
			current.WriteRune(runes[j])
			j++
		}
		i = j - 1

		part := strings.TrimSpace(current.String())
		current.Reset()
		if part != "" {
			parts = append(parts, part)
		}
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isClosing(r rune) bool {
	switch r {
	case '.', '!', '?', '"', '\'', ')', ']', '}':
		return true
	}
	return false
}
