// Package extract runs the two-stage entity/relation extraction over
// chunks: model extraction with a confidence rubric, grounding
// validation against the source text, and name-similarity deduplication.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"
)

// Config carries the extraction thresholds. It travels explicitly with
// each call so concurrent ingestions stay deterministic.
type Config struct {
	// MinConfidence drops extracted entities and relations below it.
	MinConfidence float64

	// GroundingSimilarity is the fuzzy containment threshold for
	// validating an entity name against its chunk text.
	GroundingSimilarity float64

	// MergeSimilarity is the name similarity above which two entities
	// are considered the same.
	MergeSimilarity float64
}

// DefaultConfig returns the thresholds used by the ingest pipeline.
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.5,
		GroundingSimilarity: 0.7,
		MergeSimilarity:     0.85,
	}
}

// Result is the extraction outcome of one chunk. Failed distinguishes a
// broken model call from a chunk that genuinely contains nothing;
// callers log both but only failures count against pipeline health.
type Result struct {
	Entities  []common.Entity
	Relations []common.Relation
	Mentions  []common.Mention

	// Rejected counts entities discarded by grounding validation.
	Rejected int

	Failed     bool
	FailReason string
}

// Empty reports whether the result carries no extracted content.
func (r Result) Empty() bool {
	return len(r.Entities) == 0 && len(r.Relations) == 0
}

// wire types for the structured model output; attributes are key-value
// pairs rather than a map so the schema stays strict-mode compatible
type wireAttribute struct {
	Key   string `json:"key" jsonschema_description:"Attribute name, e.g. role, date, amount"`
	Value string `json:"value" jsonschema_description:"Attribute value as stated in the text"`
}

type wireEntity struct {
	Name       string          `json:"name" jsonschema_description:"Canonical entity name as grounded in the text"`
	Type       string          `json:"type" jsonschema_description:"One of the allowed entity types"`
	Attributes []wireAttribute `json:"attributes" jsonschema_description:"Key-value attributes stated in the text"`
	Confidence float64         `json:"confidence" jsonschema_description:"Mention certainty in [0,1] per the rubric"`
}

type entityList struct {
	Entities []wireEntity `json:"entities" jsonschema_description:"Entities found in the text"`
}

type wireRelation struct {
	Subject    string  `json:"subject" jsonschema_description:"Name of the source entity"`
	Predicate  string  `json:"predicate" jsonschema_description:"Short verb phrase"`
	Object     string  `json:"object" jsonschema_description:"Name of the target entity"`
	Context    string  `json:"context" jsonschema_description:"Sentence fragment supporting the relationship"`
	Confidence float64 `json:"confidence" jsonschema_description:"Relationship certainty in [0,1]"`
}

type relationList struct {
	Relations []wireRelation `json:"relations" jsonschema_description:"Relationships between the known entities"`
}

type Extractor struct {
	ai ai.CapabilityClient
}

// NewExtractor creates an extractor backed by the given capability client.
func NewExtractor(client ai.CapabilityClient) *Extractor {
	return &Extractor{ai: client}
}

// ExtractChunk runs both extraction stages for one chunk. Model
// failures yield a failed Result, never an error, so one bad chunk
// cannot abort the batch.
func (e *Extractor) ExtractChunk(
	ctx context.Context,
	doc common.Document,
	chunk common.Chunk,
	cfg Config,
) Result {
	entities, rejected, err := e.extractEntities(ctx, doc, chunk, cfg)
	if err != nil {
		logger.Warn("[Extract] entity extraction failed",
			"file_id", chunk.FileID, "chunk_no", chunk.ChunkNo, "error", err)
		return Result{Failed: true, FailReason: err.Error()}
	}

	result := Result{
		Entities: entities,
		Rejected: rejected,
	}
	if len(entities) == 0 {
		return result
	}

	for _, entity := range entities {
		result.Mentions = append(result.Mentions, common.Mention{
			ChunkID:    chunk.ID,
			EntityName: entity.Name,
		})
	}

	relations, err := e.extractRelations(ctx, doc, chunk, entities, cfg)
	if err != nil {
		// entities survive; the relation stage alone failed
		logger.Warn("[Extract] relation extraction failed",
			"file_id", chunk.FileID, "chunk_no", chunk.ChunkNo, "error", err)
		return result
	}
	result.Relations = relations

	return result
}

func (e *Extractor) extractEntities(
	ctx context.Context,
	doc common.Document,
	chunk common.Chunk,
	cfg Config,
) ([]common.Entity, int, error) {
	types := make([]string, len(common.EntityTypes))
	for i, t := range common.EntityTypes {
		types[i] = string(t)
	}

	systemPrompts := []string{
		fmt.Sprintf(ai.EntityExtractPrompt, strings.Join(types, ", "), doc.SourceName),
	}
	if doc.Category == common.CategoryCSV {
		systemPrompts = append(systemPrompts, ai.CSVOverviewPrompt)
	}

	var wire entityList
	err := e.ai.GenerateCompletionWithFormat(
		ctx,
		"extracted_entities",
		"Entities found in one chunk of a document",
		chunk.Text,
		&wire,
		ai.WithSystemPrompts(systemPrompts...),
	)
	if err != nil {
		return nil, 0, err
	}

	return validateEntities(chunk.Text, wire.Entities, cfg)
}

func (e *Extractor) extractRelations(
	ctx context.Context,
	doc common.Document,
	chunk common.Chunk,
	entities []common.Entity,
	cfg Config,
) ([]common.Relation, error) {
	names := make([]string, len(entities))
	for i, entity := range entities {
		names[i] = entity.Name
	}

	var wire relationList
	err := e.ai.GenerateCompletionWithFormat(
		ctx,
		"extracted_relations",
		"Relationships between the known entities of one chunk",
		chunk.Text,
		&wire,
		ai.WithSystemPrompts(
			fmt.Sprintf(ai.RelationExtractPrompt, strings.Join(names, ", "), doc.SourceName),
		),
	)
	if err != nil {
		return nil, err
	}

	var relations []common.Relation
	for _, r := range wire.Relations {
		subject, ok := resolveName(r.Subject, entities, cfg.MergeSimilarity)
		if !ok {
			continue
		}
		object, ok := resolveName(r.Object, entities, cfg.MergeSimilarity)
		if !ok || subject == object {
			continue
		}

		confidence := common.ClampConfidence(r.Confidence)
		if confidence < cfg.MinConfidence || strings.TrimSpace(r.Predicate) == "" {
			continue
		}

		relations = append(relations, common.Relation{
			Subject:    subject,
			Predicate:  strings.TrimSpace(r.Predicate),
			Object:     object,
			Context:    strings.TrimSpace(r.Context),
			Confidence: confidence,
			ChunkNo:    chunk.ChunkNo,
		})
	}

	return relations, nil
}
