package extract

import (
	"strings"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
)

// validateEntities keeps only model output that is grounded in the
// chunk text, has a known type and clears the confidence floor. The
// rejected count covers grounding failures only; type and confidence
// drops are model noise, not hallucination.
func validateEntities(chunkText string, wire []wireEntity, cfg Config) ([]common.Entity, int, error) {
	var (
		entities []common.Entity
		rejected int
	)

	for _, w := range wire {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}

		if !common.ValidEntityType(w.Type) {
			continue
		}

		confidence := common.ClampConfidence(w.Confidence)
		if confidence < cfg.MinConfidence {
			continue
		}

		if !util.ContainsFuzzy(chunkText, name, cfg.GroundingSimilarity) {
			rejected++
			continue
		}

		entities = append(entities, common.Entity{
			Name:       name,
			Type:       common.EntityType(w.Type),
			Attributes: attributeMap(w.Attributes),
			Confidence: confidence,
		})
	}

	merged := MergeEntities(entities, cfg.MergeSimilarity)
	return merged, rejected, nil
}

func attributeMap(attrs []wireAttribute) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		key := strings.TrimSpace(a.Key)
		value := strings.TrimSpace(a.Value)
		if key == "" || value == "" {
			continue
		}
		if _, exists := m[key]; !exists {
			m[key] = value
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// resolveName maps a relation endpoint onto a validated entity, by
// exact folded name first and strong textual match second.
func resolveName(name string, entities []common.Entity, minSim float64) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}

	folded := util.FoldKey(name)
	for _, entity := range entities {
		if util.FoldKey(entity.Name) == folded {
			return entity.Name, true
		}
	}

	for _, entity := range entities {
		if SameName(name, entity.Name, minSim) {
			return entity.Name, true
		}
	}

	return "", false
}
