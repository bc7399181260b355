package vision

import (
	"context"
	"strings"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/ai"
)

// fuseOCR runs two transcription passes and merges them. The
// handwriting-tuned pass is primary; print-pass lines are appended only
// when they are not near-duplicates of lines already included.
func (a *Analyzer) fuseOCR(ctx context.Context, payload ai.ImagePayload) (string, error) {
	primary, err := a.ai.GenerateImageDescription(ctx, ai.TranscribeHandwritingPrompt, payload)
	if err != nil {
		return "", err
	}
	primary = util.SanitizeText(primary)

	secondary, err := a.ai.GenerateImageDescription(ctx, ai.TranscribePrintPrompt, payload)
	if err != nil {
		// the primary pass alone is still a usable transcription
		return primary, nil
	}
	secondary = util.SanitizeText(secondary)

	return MergeOCR(primary, secondary, nearDuplicateThreshold), nil
}

// MergeOCR combines two transcriptions line by line. A secondary line is
// added only if no already-included line is similar above threshold.
func MergeOCR(primary, secondary string, threshold float64) string {
	merged := splitBlocks(primary)

	for _, candidate := range splitBlocks(secondary) {
		duplicate := false
		for _, existing := range merged {
			if util.Similarity(existing, candidate) >= threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, candidate)
		}
	}

	return strings.Join(merged, "\n")
}

func splitBlocks(text string) []string {
	var blocks []string
	for _, line := range strings.Split(text, "\n") {
		line = util.NormalizeSpace(line)
		if line != "" {
			blocks = append(blocks, line)
		}
	}
	return blocks
}
