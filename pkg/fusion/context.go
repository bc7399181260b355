package fusion

import (
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/pkg/graphstore"
	"github.com/docsage-ai/docsage/pkg/index"
)

// buildContext assembles the generation context: graph facts first
// (they are compact and high-signal), then chunks in retrieval order,
// truncated at the character budget on chunk boundaries.
func buildContext(hits []index.Hit, facts []graphstore.Fact, graphEnhanced bool, maxChars int) string {
	var b strings.Builder

	if graphEnhanced && len(facts) > 0 {
		b.WriteString("Known facts from the knowledge graph:\n")
		for _, fact := range facts {
			line := "- " + fact.Render() + "\n"
			if maxChars > 0 && b.Len()+len(line) > maxChars {
				break
			}
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	b.WriteString("Document excerpts:\n")
	for _, hit := range hits {
		section := fmt.Sprintf("[%s, chunk %d", hit.Chunk.Source, hit.Chunk.ChunkNo)
		if hit.Chunk.Page > 0 {
			section += fmt.Sprintf(", page %d", hit.Chunk.Page)
		}
		section += "]\n" + strings.TrimSpace(hit.Chunk.Text) + "\n\n"

		if maxChars > 0 && b.Len()+len(section) > maxChars {
			break
		}
		b.WriteString(section)
	}

	return strings.TrimSpace(b.String())
}
