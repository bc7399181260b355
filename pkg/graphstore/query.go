package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Fact is one traversal result: a relation between two entities, with
// the provenance needed for scope filtering and citations.
type Fact struct {
	Subject    string
	Predicate  string
	Object     string
	Context    string
	Confidence float64
	FileID     string
}

// Render formats the fact as one context line for generation.
func (f Fact) Render() string {
	line := fmt.Sprintf("%s %s %s (confidence %.2f)", f.Subject, f.Predicate, f.Object, f.Confidence)
	if f.Context != "" {
		line += fmt.Sprintf(" [%s]", f.Context)
	}
	return line
}

// LookupParams bounds a traversal.
type LookupParams struct {
	MinConfidence float64
	Scope         common.Scope
	Limit         int
}

// Lookup finds facts tied to the query entities. Matching runs in
// priority order: exact name match, then type-category match, then
// fuzzy partial match. The first level that yields facts wins.
func (s *Store) Lookup(ctx context.Context, names []string, params LookupParams) ([]Fact, error) {
	if s == nil || s.driver == nil {
		return nil, ErrUnavailable
	}
	if len(names) == 0 {
		return nil, nil
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		key := util.FoldKey(name)
		if key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	matchers := []string{
		`e.name_key IN $keys`,
		`e.type IN $types`,
		`any(key IN $keys WHERE e.name_key CONTAINS key OR key CONTAINS e.name_key)`,
	}

	for _, matcher := range matchers {
		facts, err := s.lookupWith(ctx, session, matcher, keys, params)
		if err != nil {
			return nil, err
		}
		if len(facts) > 0 {
			return facts, nil
		}
	}

	return nil, nil
}

func (s *Store) lookupWith(
	ctx context.Context,
	session neo4j.SessionWithContext,
	matcher string,
	keys []string,
	params LookupParams,
) ([]Fact, error) {
	cypher := fmt.Sprintf(`
MATCH (e:Entity)
WHERE %s AND e.confidence >= $min_confidence
MATCH (e)-[r:RELATES]-(other:Entity)
WHERE r.confidence >= $min_confidence
`, matcher)

	args := map[string]any{
		"keys":           keys,
		"types":          typeCandidates(keys),
		"min_confidence": params.MinConfidence,
		"limit":          params.Limit,
	}

	switch params.Scope.Level {
	case common.ScopeFile:
		cypher += ` AND r.file_id = $file_id`
		args["file_id"] = params.Scope.FileID
	case common.ScopeFolder:
		cypher += ` AND EXISTS {
    MATCH (d:Document {folder_id: $folder_id}) WHERE d.file_id = r.file_id
}`
		args["folder_id"] = params.Scope.FolderID
	}

	cypher += `
WITH e, r, other,
    CASE WHEN startNode(r) = e THEN e.name ELSE other.name END AS subject,
    CASE WHEN startNode(r) = e THEN other.name ELSE e.name END AS object
RETURN DISTINCT subject, r.predicate AS predicate, object,
    r.context AS context, r.confidence AS confidence, r.file_id AS file_id
ORDER BY confidence DESC
LIMIT $limit`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, args)
		if err != nil {
			return nil, err
		}

		var facts []Fact
		for res.Next(ctx) {
			record := res.Record()
			facts = append(facts, Fact{
				Subject:    stringValue(record.Values[0]),
				Predicate:  stringValue(record.Values[1]),
				Object:     stringValue(record.Values[2]),
				Context:    stringValue(record.Values[3]),
				Confidence: floatValue(record.Values[4]),
				FileID:     stringValue(record.Values[5]),
			})
		}
		return facts, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graph lookup failed: %w", err)
	}

	return result.([]Fact), nil
}

// typeCandidates maps query tokens like "people" or "organizations"
// onto entity type names for the type-category match level.
func typeCandidates(keys []string) []string {
	aliases := map[string]common.EntityType{
		"person": common.EntityPerson, "people": common.EntityPerson,
		"organization": common.EntityOrganization, "organizations": common.EntityOrganization,
		"company": common.EntityOrganization, "companies": common.EntityOrganization,
		"location": common.EntityLocation, "locations": common.EntityLocation,
		"place": common.EntityLocation, "places": common.EntityLocation,
		"product": common.EntityProduct, "products": common.EntityProduct,
		"technology": common.EntityTechnology, "technologies": common.EntityTechnology,
		"event": common.EntityEvent, "events": common.EntityEvent,
		"concept": common.EntityConcept, "concepts": common.EntityConcept,
		"date": common.EntityTime, "dates": common.EntityTime,
		"number": common.EntityNumber, "numbers": common.EntityNumber,
	}

	seen := make(map[common.EntityType]struct{})
	var types []string
	for _, key := range keys {
		for _, word := range strings.Fields(key) {
			if t, ok := aliases[word]; ok {
				if _, dup := seen[t]; !dup {
					seen[t] = struct{}{}
					types = append(types, string(t))
				}
			}
		}
	}
	return types
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
