package extract

import (
	"strings"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
)

// SameName reports whether two entity names refer to the same entity:
// identical folded forms, high string similarity, or one being the
// acronym of the other ("AI" for "Artificial Intelligence").
func SameName(a, b string, minSim float64) bool {
	fa := util.FoldKey(a)
	fb := util.FoldKey(b)
	if fa == "" || fb == "" {
		return false
	}
	if fa == fb {
		return true
	}
	if util.Similarity(fa, fb) >= minSim {
		return true
	}
	return acronymOf(fa) == fb || acronymOf(fb) == fa
}

// acronymOf builds the initial-letter acronym of a multi-word name.
// Single words have no acronym so "AI" never matches "Apple".
func acronymOf(folded string) string {
	words := strings.Fields(folded)
	if len(words) < 2 {
		return ""
	}
	var sb strings.Builder
	for _, w := range words {
		r := []rune(w)
		sb.WriteRune(r[0])
	}
	return sb.String()
}

// MergeEntities collapses near-duplicate entities. The longer name wins
// as canonical since it carries more information; attributes are
// unioned with first-writer-wins per key and confidence is the max of
// the merged instances. Input order is preserved for the survivors.
func MergeEntities(entities []common.Entity, minSim float64) []common.Entity {
	var merged []common.Entity

	for _, entity := range entities {
		idx := -1
		for i := range merged {
			if SameName(merged[i].Name, entity.Name, minSim) {
				idx = i
				break
			}
		}
		if idx < 0 {
			clone := entity
			if entity.Attributes != nil {
				clone.Attributes = make(map[string]string, len(entity.Attributes))
				for k, v := range entity.Attributes {
					clone.Attributes[k] = v
				}
			}
			merged = append(merged, clone)
			continue
		}

		merged[idx] = mergeInto(merged[idx], entity)
	}

	return merged
}

// MergeRename merges entities and returns the mapping of replaced names
// to their canonical survivor, so relations and mentions can follow.
func MergeRename(entities []common.Entity, minSim float64) ([]common.Entity, map[string]string) {
	merged := MergeEntities(entities, minSim)

	rename := make(map[string]string)
	for _, entity := range entities {
		for _, survivor := range merged {
			if SameName(survivor.Name, entity.Name, minSim) {
				if entity.Name != survivor.Name {
					rename[entity.Name] = survivor.Name
				}
				break
			}
		}
	}
	return merged, rename
}

func mergeInto(dst, src common.Entity) common.Entity {
	if len(src.Name) > len(dst.Name) {
		dst.Name = src.Name
		dst.Type = src.Type
	}
	if src.Confidence > dst.Confidence {
		dst.Confidence = src.Confidence
	}
	if len(src.Attributes) > 0 {
		if dst.Attributes == nil {
			dst.Attributes = make(map[string]string, len(src.Attributes))
		}
		for k, v := range src.Attributes {
			if _, exists := dst.Attributes[k]; !exists {
				dst.Attributes[k] = v
			}
		}
	}
	return dst
}

// Aggregate folds per-chunk results of one file into a single result:
// entities deduplicated across chunks, relations and mentions remapped
// onto the canonical names. Failed chunks contribute their failure
// count through the caller's logging, not here.
func Aggregate(results []Result, cfg Config) Result {
	var all Result
	for _, r := range results {
		if r.Failed {
			continue
		}
		all.Entities = append(all.Entities, r.Entities...)
		all.Relations = append(all.Relations, r.Relations...)
		all.Mentions = append(all.Mentions, r.Mentions...)
		all.Rejected += r.Rejected
	}

	merged, rename := MergeRename(all.Entities, cfg.MergeSimilarity)
	all.Entities = merged

	canonical := func(name string) string {
		if to, ok := rename[name]; ok {
			return to
		}
		return name
	}

	for i := range all.Relations {
		all.Relations[i].Subject = canonical(all.Relations[i].Subject)
		all.Relations[i].Object = canonical(all.Relations[i].Object)
	}

	var relations []common.Relation
	for _, r := range all.Relations {
		// renaming can collapse a relation onto itself
		if r.Subject != r.Object {
			relations = append(relations, r)
		}
	}
	all.Relations = relations

	seen := make(map[string]struct{})
	var mentions []common.Mention
	for _, m := range all.Mentions {
		m.EntityName = canonical(m.EntityName)
		key := m.ChunkID + "|" + util.FoldKey(m.EntityName)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		mentions = append(mentions, m)
	}
	all.Mentions = mentions

	return all
}
