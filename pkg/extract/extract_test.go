package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/docsage-ai/docsage/pkg/ai/aitest"
	"github.com/docsage-ai/docsage/pkg/common"
)

var testDoc = common.Document{
	FileID:     "file-1",
	OwnerID:    "owner-1",
	SourceName: "report.txt",
	Category:   common.CategoryText,
}

var testChunk = common.Chunk{
	ID:      "chunk-1",
	FileID:  "file-1",
	ChunkNo: 1,
	Source:  "report.txt",
	Text:    "DeepMind published new research on Artificial Intelligence in London.",
}

func TestExtractChunk(t *testing.T) {
	double := aitest.NewDouble()
	double.Structured["extracted_entities"] = `{
		"entities": [
			{"name": "DeepMind", "type": "ORGANIZATION", "attributes": [{"key": "industry", "value": "research"}], "confidence": 0.95},
			{"name": "Artificial Intelligence", "type": "TECHNOLOGY", "attributes": [], "confidence": 0.9},
			{"name": "London", "type": "LOCATION", "attributes": [], "confidence": 0.9},
			{"name": "Quantum Computing", "type": "TECHNOLOGY", "attributes": [], "confidence": 0.9},
			{"name": "DeepMind", "type": "ORGANIZATION", "attributes": [], "confidence": 0.4},
			{"name": "something", "type": "NOT_A_TYPE", "attributes": [], "confidence": 0.9}
		]
	}`
	double.Structured["extracted_relations"] = `{
		"relations": [
			{"subject": "DeepMind", "predicate": "researches", "object": "Artificial Intelligence", "context": "published new research on", "confidence": 0.9},
			{"subject": "DeepMind", "predicate": "located in", "object": "Mars", "context": "", "confidence": 0.9},
			{"subject": "deepmind", "predicate": "", "object": "London", "context": "", "confidence": 0.9}
		]
	}`

	result := NewExtractor(double).ExtractChunk(context.Background(), testDoc, testChunk, DefaultConfig())

	if result.Failed {
		t.Fatalf("unexpected failure: %s", result.FailReason)
	}

	// Quantum Computing is not grounded in the chunk text
	if result.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", result.Rejected)
	}
	if len(result.Entities) != 3 {
		t.Fatalf("entities = %+v", result.Entities)
	}
	for _, e := range result.Entities {
		if e.Name == "Quantum Computing" {
			t.Error("hallucinated entity survived validation")
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			t.Errorf("confidence out of range: %+v", e)
		}
	}

	// only the grounded relation with resolvable endpoints survives
	if len(result.Relations) != 1 {
		t.Fatalf("relations = %+v", result.Relations)
	}
	r := result.Relations[0]
	if r.Subject != "DeepMind" || r.Object != "Artificial Intelligence" {
		t.Errorf("relation endpoints = %q -> %q", r.Subject, r.Object)
	}
	if r.ChunkNo != 1 {
		t.Errorf("relation chunk_no = %d", r.ChunkNo)
	}

	if len(result.Mentions) != 3 {
		t.Errorf("mentions = %+v", result.Mentions)
	}
	for _, m := range result.Mentions {
		if m.ChunkID != "chunk-1" {
			t.Errorf("mention chunk = %q", m.ChunkID)
		}
	}
}

func TestExtractChunkModelFailure(t *testing.T) {
	double := aitest.NewDouble()
	double.Err = errors.New("model unavailable")

	result := NewExtractor(double).ExtractChunk(context.Background(), testDoc, testChunk, DefaultConfig())
	if !result.Failed {
		t.Fatal("expected failed result")
	}
	if result.FailReason == "" {
		t.Error("failed result must carry a reason")
	}
	if !result.Empty() {
		t.Error("failed result should carry no content")
	}
}

func TestExtractChunkNothingFound(t *testing.T) {
	double := aitest.NewDouble()
	double.Structured["extracted_entities"] = `{"entities": []}`

	result := NewExtractor(double).ExtractChunk(context.Background(), testDoc, testChunk, DefaultConfig())
	if result.Failed {
		t.Fatalf("empty extraction is not a failure: %s", result.FailReason)
	}
	if !result.Empty() {
		t.Errorf("expected empty result, got %+v", result)
	}
	// the relation stage is skipped without entities
	for _, call := range double.Calls {
		if call == "structured:extracted_relations" {
			t.Error("relation extraction ran without entities")
		}
	}
}

func TestExtractChunkRelationStageFailureKeepsEntities(t *testing.T) {
	double := aitest.NewDouble()
	double.Structured["extracted_entities"] = `{
		"entities": [{"name": "London", "type": "LOCATION", "attributes": [], "confidence": 0.9}]
	}`
	// no extracted_relations registered: stage two fails

	result := NewExtractor(double).ExtractChunk(context.Background(), testDoc, testChunk, DefaultConfig())
	if result.Failed {
		t.Fatalf("entity stage succeeded, result must not be failed: %s", result.FailReason)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("entities = %+v", result.Entities)
	}
	if len(result.Relations) != 0 {
		t.Fatalf("relations = %+v", result.Relations)
	}
}
