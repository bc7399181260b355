package extract

import (
	"testing"

	"github.com/docsage-ai/docsage/pkg/common"
)

func TestSameName(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"AI", "Artificial Intelligence", true},
		{"artificial intelligence", "Artificial Intelligence", true},
		{"Microsoft Corp", "Microsoft Corp.", true},
		{"AI", "Apple", false},
		{"London", "Berlin", false},
		{"", "Artificial Intelligence", false},
	}

	for _, tt := range tests {
		if got := SameName(tt.a, tt.b, 0.85); got != tt.want {
			t.Errorf("SameName(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMergeEntitiesAcronym(t *testing.T) {
	entities := []common.Entity{
		{Name: "AI", Type: common.EntityConcept, Confidence: 0.7, Attributes: map[string]string{"field": "computing"}},
		{Name: "Artificial Intelligence", Type: common.EntityTechnology, Confidence: 0.9, Attributes: map[string]string{"field": "research", "origin": "1956"}},
	}

	merged := MergeEntities(entities, 0.85)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged entity, got %d", len(merged))
	}

	e := merged[0]
	if e.Name != "Artificial Intelligence" {
		t.Errorf("canonical name = %q, want the longer form", e.Name)
	}
	if e.Confidence != 0.9 {
		t.Errorf("confidence = %v, want max 0.9", e.Confidence)
	}
	// union with first-writer-wins per key
	if e.Attributes["field"] != "computing" {
		t.Errorf("attribute field = %q, want first writer's value", e.Attributes["field"])
	}
	if e.Attributes["origin"] != "1956" {
		t.Errorf("attribute origin = %q", e.Attributes["origin"])
	}
}

func TestMergeEntitiesKeepsDistinct(t *testing.T) {
	entities := []common.Entity{
		{Name: "London", Type: common.EntityLocation, Confidence: 0.9},
		{Name: "Berlin", Type: common.EntityLocation, Confidence: 0.9},
	}
	if merged := MergeEntities(entities, 0.85); len(merged) != 2 {
		t.Fatalf("distinct entities merged: %+v", merged)
	}
}

func TestAggregateRemapsRelationsAndMentions(t *testing.T) {
	results := []Result{
		{
			Entities: []common.Entity{{Name: "AI", Type: common.EntityConcept, Confidence: 0.7}},
			Mentions: []common.Mention{{ChunkID: "c1", EntityName: "AI"}},
		},
		{
			Entities: []common.Entity{
				{Name: "Artificial Intelligence", Type: common.EntityTechnology, Confidence: 0.9},
				{Name: "DeepMind", Type: common.EntityOrganization, Confidence: 0.95},
			},
			Relations: []common.Relation{
				{Subject: "DeepMind", Predicate: "researches", Object: "Artificial Intelligence", Confidence: 0.9, ChunkNo: 2},
			},
			Mentions: []common.Mention{
				{ChunkID: "c2", EntityName: "Artificial Intelligence"},
				{ChunkID: "c2", EntityName: "DeepMind"},
			},
		},
		{Failed: true, FailReason: "model timeout"},
	}

	agg := Aggregate(results, DefaultConfig())

	if len(agg.Entities) != 2 {
		t.Fatalf("entities = %+v", agg.Entities)
	}
	if len(agg.Relations) != 1 {
		t.Fatalf("relations = %+v", agg.Relations)
	}
	if agg.Relations[0].Object != "Artificial Intelligence" {
		t.Errorf("relation object = %q", agg.Relations[0].Object)
	}

	// the c1 mention of "AI" must follow the canonical name
	found := false
	for _, m := range agg.Mentions {
		if m.ChunkID == "c1" && m.EntityName == "Artificial Intelligence" {
			found = true
		}
	}
	if !found {
		t.Errorf("mention not remapped: %+v", agg.Mentions)
	}
}

func TestAggregateDropsSelfRelations(t *testing.T) {
	results := []Result{{
		Entities: []common.Entity{
			{Name: "AI", Type: common.EntityConcept, Confidence: 0.7},
			{Name: "Artificial Intelligence", Type: common.EntityTechnology, Confidence: 0.9},
		},
		Relations: []common.Relation{
			{Subject: "AI", Predicate: "is short for", Object: "Artificial Intelligence", Confidence: 0.9},
		},
	}}

	agg := Aggregate(results, DefaultConfig())
	if len(agg.Relations) != 0 {
		t.Fatalf("self-relation survived the merge: %+v", agg.Relations)
	}
}
