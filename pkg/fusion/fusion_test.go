package fusion

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/docsage-ai/docsage/pkg/ai/aitest"
	"github.com/docsage-ai/docsage/pkg/answercache"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/convo"
	"github.com/docsage-ai/docsage/pkg/graphstore"
	"github.com/docsage-ai/docsage/pkg/index"
)

type fakeVector struct {
	hits    []index.Hit
	err     error
	gotTopK int
	gotQ    string
}

func (f *fakeVector) Search(ctx context.Context, query string, scope common.Scope, topK int) ([]index.Hit, error) {
	f.gotTopK = topK
	f.gotQ = query
	return f.hits, f.err
}

type fakeGraph struct {
	available bool
	facts     []graphstore.Fact
	err       error
	gotNames  []string
}

func (f *fakeGraph) Available(ctx context.Context) bool { return f.available }

func (f *fakeGraph) Lookup(ctx context.Context, names []string, params graphstore.LookupParams) ([]graphstore.Fact, error) {
	f.gotNames = names
	return f.facts, f.err
}

type memCache struct {
	entries map[string]answercache.Entry
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]answercache.Entry)}
}

func (m *memCache) Get(ctx context.Context, key string) (answercache.Entry, bool) {
	entry, ok := m.entries[key]
	return entry, ok
}

func (m *memCache) Set(ctx context.Context, key string, entry answercache.Entry) error {
	m.entries[key] = entry
	return nil
}

type fakeAuth struct {
	allow bool
	err   error
}

func (f *fakeAuth) CanAccess(ctx context.Context, ownerID string, scope common.Scope) (bool, error) {
	return f.allow, f.err
}

type fakeDetector struct {
	detection convo.Detection
}

func (f *fakeDetector) Detect(ctx context.Context, query string, prev *convo.Turn) convo.Detection {
	return f.detection
}

func hitsAt(distance float64) []index.Hit {
	return []index.Hit{
		{
			Chunk: common.Chunk{
				ID: "c1", FileID: "file-1", ChunkNo: 0, Page: 2,
				Source: "report.pdf", Text: "Revenue grew 12% in Q3.",
			},
			Category: common.CategoryPDF,
			Distance: distance,
		},
		{
			Chunk: common.Chunk{
				ID: "c2", FileID: "file-1", ChunkNo: 1, Page: 3,
				Source: "report.pdf", Text: "Growth was driven by the northern region.",
			},
			Category: common.CategoryPDF,
			Distance: distance,
		},
	}
}

func TestAnswerFullPath(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{
		"Q3 revenue growth drivers",
		"Revenue grew 12% in Q3, driven by the northern region.",
	}
	vector := &fakeVector{hits: hitsAt(0.4)}
	graph := &fakeGraph{
		available: true,
		facts: []graphstore.Fact{
			{Subject: "Acme Corp", Predicate: "reported", Object: "Q3 growth", Confidence: 0.9},
		},
	}
	cache := newMemCache()
	engine := NewEngine(double, vector, graph, cache, nil, &fakeAuth{allow: true})

	resp, err := engine.Answer(context.Background(), Request{
		Query: "What drove revenue growth in Q3?",
		Scope: common.Scope{OwnerID: "o1"},
	}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if resp.Outcome != OutcomeAnswered {
		t.Fatalf("outcome = %s", resp.Outcome)
	}
	if resp.RewrittenQuery != "Q3 revenue growth drivers" {
		t.Errorf("rewritten = %q", resp.RewrittenQuery)
	}
	if vector.gotQ != "Q3 revenue growth drivers" {
		t.Errorf("search query = %q, want the rewritten form", vector.gotQ)
	}
	if !resp.GraphEnhanced {
		t.Error("graph was available, response should be graph enhanced")
	}
	if resp.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8 for distance 0.4", resp.Confidence)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("citations = %d, want one per hit", len(resp.Citations))
	}
	want := common.Citation{FileID: "file-1", ChunkNo: 0, Page: 2, Source: "report.pdf"}
	if resp.Citations[0] != want {
		t.Errorf("citation = %+v", resp.Citations[0])
	}
	if len(cache.entries) != 1 {
		t.Errorf("answer should be cached, got %d entries", len(cache.entries))
	}
	for _, entry := range cache.entries {
		if entry.NoAnswer || entry.Answer == "" {
			t.Errorf("cached entry = %+v", entry)
		}
	}
}

func TestAnswerCacheHitSkipsEverything(t *testing.T) {
	double := aitest.NewDouble()
	cache := newMemCache()
	scope := common.Scope{Level: common.ScopeDrive, OwnerID: "o1"}
	key := answercache.Key(scope, "what changed")
	cache.entries[key] = answercache.Entry{Answer: "cached answer", Confidence: 0.7}

	vector := &fakeVector{err: errors.New("must not be called")}
	engine := NewEngine(double, vector, nil, cache, nil, nil)

	resp, err := engine.Answer(context.Background(), Request{Query: "what changed", Scope: scope}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Outcome != OutcomeCached || resp.Answer != "cached answer" {
		t.Errorf("resp = %+v", resp)
	}
	if len(double.Calls) != 0 {
		t.Errorf("cache hit must not touch the model: %v", double.Calls)
	}
}

func TestAnswerNoHitsRefusesAndCaches(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{"rewritten"}
	cache := newMemCache()
	engine := NewEngine(double, &fakeVector{}, nil, cache, nil, nil)

	resp, err := engine.Answer(context.Background(), Request{
		Query: "anything indexed about llamas?",
		Scope: common.Scope{OwnerID: "o1"},
	}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Outcome != OutcomeNoAnswer || resp.Answer != NoAnswerText {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Confidence != 0 {
		t.Errorf("confidence = %v", resp.Confidence)
	}
	for _, entry := range cache.entries {
		if !entry.NoAnswer {
			t.Errorf("refusal must be cached with the no-answer flag: %+v", entry)
		}
	}
	if len(cache.entries) != 1 {
		t.Error("refusals are cached too")
	}
}

func TestAnswerVectorFailureIsNotCached(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{"rewritten"}
	cache := newMemCache()
	vector := &fakeVector{err: errors.New("pg connection refused")}
	engine := NewEngine(double, vector, nil, cache, nil, nil)

	_, err := engine.Answer(context.Background(), Request{
		Query: "What drove growth?",
		Scope: common.Scope{OwnerID: "o1"},
	}, DefaultThresholds())
	if err == nil {
		t.Fatal("search failure must surface as an error, not a refusal")
	}
	if len(cache.entries) != 0 {
		t.Errorf("a failed search must not cache a refusal: %+v", cache.entries)
	}
}

func TestAnswerLowConfidenceRefuses(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{"rewritten"}
	// distance 1.8 maps to confidence 0.1, below the gate
	engine := NewEngine(double, &fakeVector{hits: hitsAt(1.8)}, nil, nil, nil, nil)

	resp, err := engine.Answer(context.Background(), Request{
		Query: "barely related question",
		Scope: common.Scope{OwnerID: "o1"},
	}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Outcome != OutcomeNoAnswer {
		t.Errorf("outcome = %s, want refusal below the confidence gate", resp.Outcome)
	}
	if len(resp.Citations) != 0 {
		t.Error("refusals carry no citations")
	}
}

func TestAnswerGraphUnavailableDegrades(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{"rewritten", "the answer"}
	graph := &fakeGraph{available: false}
	engine := NewEngine(double, &fakeVector{hits: hitsAt(0.4)}, graph, nil, nil, nil)

	resp, err := engine.Answer(context.Background(), Request{
		Query: "What drove growth?",
		Scope: common.Scope{OwnerID: "o1"},
	}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Outcome != OutcomeAnswered {
		t.Fatalf("outcome = %s, vector-only path must still answer", resp.Outcome)
	}
	if resp.GraphEnhanced {
		t.Error("graph down, response must report graph_enhanced false")
	}
}

func TestAnswerGraphLookupFailureDegrades(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{"rewritten", "the answer"}
	graph := &fakeGraph{available: true, err: errors.New("neo4j gone")}
	engine := NewEngine(double, &fakeVector{hits: hitsAt(0.4)}, graph, nil, nil, nil)

	resp, err := engine.Answer(context.Background(), Request{
		Query: "What drove growth?",
		Scope: common.Scope{OwnerID: "o1"},
	}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Outcome != OutcomeAnswered || resp.GraphEnhanced {
		t.Errorf("resp = %+v, lookup failure must degrade to vector-only", resp)
	}
}

func TestAnswerUnauthorized(t *testing.T) {
	engine := NewEngine(aitest.NewDouble(), &fakeVector{}, nil, nil, nil, &fakeAuth{allow: false})

	_, err := engine.Answer(context.Background(), Request{
		Query: "secrets",
		Scope: common.Scope{OwnerID: "o1", FileID: "someone-elses-file"},
	}, DefaultThresholds())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestAnswerSummaryQuerySkipsRewrite(t *testing.T) {
	double := aitest.NewDouble()
	// only the generation completion is registered; a rewrite call
	// would fail the double
	double.Completions = []string{"This file covers Q3 results."}
	vector := &fakeVector{hits: hitsAt(0.2)}
	engine := NewEngine(double, vector, nil, nil, nil, nil)

	th := DefaultThresholds()
	resp, err := engine.Answer(context.Background(), Request{
		Query: "Summarize this document",
		Scope: common.Scope{OwnerID: "o1", FileID: "file-1"},
	}, th)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.RewrittenQuery != "Summarize this document" {
		t.Errorf("summary queries keep the literal query, got %q", resp.RewrittenQuery)
	}
	if vector.gotTopK != th.SummaryTopK {
		t.Errorf("topK = %d, want widened retrieval %d", vector.gotTopK, th.SummaryTopK)
	}
}

func TestAnswerFollowupFlag(t *testing.T) {
	double := aitest.NewDouble()
	double.Completions = []string{"Q3 report methodology details", "the answer"}
	detector := &fakeDetector{detection: convo.Detection{IsFollowup: true, Confidence: 0.9, Method: "heuristic"}}
	engine := NewEngine(double, &fakeVector{hits: hitsAt(0.4)}, nil, nil, detector, nil)

	resp, err := engine.Answer(context.Background(), Request{
		Query:    "What about it?",
		Scope:    common.Scope{OwnerID: "o1"},
		PrevTurn: &convo.Turn{Query: "Summarize the Q3 report", Answer: "It shows growth."},
	}, DefaultThresholds())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !resp.Followup {
		t.Error("detector classified follow-up, response must carry the flag")
	}
}

func TestResolveScope(t *testing.T) {
	tests := []struct {
		name string
		in   common.Scope
		want common.ScopeLevel
	}{
		{"file wins", common.Scope{OwnerID: "o", FileID: "f", FolderID: "d"}, common.ScopeFile},
		{"folder", common.Scope{OwnerID: "o", FolderID: "d"}, common.ScopeFolder},
		{"drive default", common.Scope{OwnerID: "o"}, common.ScopeDrive},
		{"explicit kept", common.Scope{Level: common.ScopeDrive, OwnerID: "o", FileID: "f"}, common.ScopeDrive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveScope(Request{Scope: tt.in})
			if got.Level != tt.want {
				t.Errorf("level = %s, want %s", got.Level, tt.want)
			}
		})
	}
}

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			"stopwords dropped, names joined",
			"What is the relationship between Marie Curie and radium?",
			[]string{"relationship", "Marie Curie", "radium"},
		},
		{
			"multiword org",
			"Who founded Acme Corp",
			[]string{"founded", "Acme Corp"},
		},
		{
			"duplicates collapsed",
			"revenue revenue Revenue",
			[]string{"revenue"},
		},
		{
			"all stopwords",
			"what is this about",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queryTerms(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("queryTerms(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestBuildContextBudgetAndSections(t *testing.T) {
	hits := hitsAt(0.3)
	facts := []graphstore.Fact{
		{Subject: "Acme Corp", Predicate: "operates in", Object: "northern region", Confidence: 0.9},
	}

	text := buildContext(hits, facts, true, 12000)
	if !strings.Contains(text, "Known facts from the knowledge graph:") {
		t.Error("graph section missing")
	}
	if !strings.Contains(text, "[report.pdf, chunk 0, page 2]") {
		t.Errorf("chunk header missing:\n%s", text)
	}

	// graph disabled hides facts even when present
	text = buildContext(hits, facts, false, 12000)
	if strings.Contains(text, "knowledge graph") {
		t.Error("disabled graph must not contribute facts")
	}

	// tiny budget keeps the first chunk off once the header overflows
	text = buildContext(hits, nil, false, 40)
	if strings.Contains(text, "northern region") {
		t.Errorf("budget exceeded:\n%s", text)
	}
}
