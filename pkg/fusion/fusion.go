// Package fusion answers queries by combining vector similarity hits
// and graph traversal facts into one generated, cited response, gated
// on aggregate retrieval confidence.
package fusion

import (
	"context"
	"errors"
	"fmt"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/answercache"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/convo"
	"github.com/docsage-ai/docsage/pkg/graphstore"
	"github.com/docsage-ai/docsage/pkg/index"
	"github.com/docsage-ai/docsage/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrUnauthorized is the only hard request-level failure: the caller
// asked for a scope it does not own.
var ErrUnauthorized = errors.New("not authorized for the requested scope")

// NoAnswerText is the explicit refusal returned and cached when
// retrieval confidence is insufficient.
const NoAnswerText = "insufficient indexed content to answer this question"

// Outcome classifies how a response was produced.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeNoAnswer Outcome = "no_answer"
	OutcomeCached   Outcome = "cached"
)

// Request is one query with its scope and optional prior turn.
type Request struct {
	Query    string
	Scope    common.Scope
	PrevTurn *convo.Turn
}

// Response is the fused answer surface.
type Response struct {
	Answer         string            `json:"answer"`
	Citations      []common.Citation `json:"citations"`
	Confidence     float64           `json:"confidence"`
	RewrittenQuery string            `json:"rewritten_query"`
	Outcome        Outcome           `json:"outcome"`
	GraphEnhanced  bool              `json:"graph_enhanced"`
	Followup       bool              `json:"followup"`
}

// Thresholds is the versioned retrieval configuration, passed
// explicitly into each call so concurrent queries stay deterministic.
type Thresholds struct {
	// MinAnswerConfidence gates generation; below it the refusal is
	// returned and cached.
	MinAnswerConfidence float64

	// GraphMinConfidence filters traversal facts.
	GraphMinConfidence float64

	TopK        int
	SummaryTopK int
	GraphLimit  int

	// MaxContextChars bounds the assembled generation context.
	MaxContextChars int
}

// DefaultThresholds returns the configuration used by the query API.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAnswerConfidence: 0.35,
		GraphMinConfidence:  0.5,
		TopK:                8,
		SummaryTopK:         20,
		GraphLimit:          15,
		MaxContextChars:     12000,
	}
}

// VectorSearcher is the chunk index surface the engine needs.
type VectorSearcher interface {
	Search(ctx context.Context, query string, scope common.Scope, topK int) ([]index.Hit, error)
}

// GraphSource is the graph surface; Available gating keeps queries
// working vector-only when the backend is down.
type GraphSource interface {
	Available(ctx context.Context) bool
	Lookup(ctx context.Context, names []string, params graphstore.LookupParams) ([]graphstore.Fact, error)
}

// AnswerCache is the namespaced answer cache surface.
type AnswerCache interface {
	Get(ctx context.Context, key string) (answercache.Entry, bool)
	Set(ctx context.Context, key string, entry answercache.Entry) error
}

// FollowupDetector classifies conversational follow-ups.
type FollowupDetector interface {
	Detect(ctx context.Context, query string, prev *convo.Turn) convo.Detection
}

// Authorizer answers whether an owner may query a scope.
type Authorizer interface {
	CanAccess(ctx context.Context, ownerID string, scope common.Scope) (bool, error)
}

type Engine struct {
	ai       ai.CapabilityClient
	vector   VectorSearcher
	graph    GraphSource
	cache    AnswerCache
	detector FollowupDetector
	auth     Authorizer
}

// NewEngine wires the engine's collaborators. graph, cache and detector
// may be nil; the engine degrades accordingly.
func NewEngine(
	client ai.CapabilityClient,
	vector VectorSearcher,
	graph GraphSource,
	cache AnswerCache,
	detector FollowupDetector,
	auth Authorizer,
) *Engine {
	return &Engine{
		ai:       client,
		vector:   vector,
		graph:    graph,
		cache:    cache,
		detector: detector,
		auth:     auth,
	}
}

// Answer runs the query state machine: scope resolution and
// authorization, cache check, rewrite, parallel dual retrieval,
// confidence gate, generation, citation assembly and cache write.
func (e *Engine) Answer(ctx context.Context, req Request, th Thresholds) (Response, error) {
	scope := resolveScope(req)

	if e.auth != nil {
		allowed, err := e.auth.CanAccess(ctx, scope.OwnerID, scope)
		if err != nil {
			return Response{}, fmt.Errorf("authorization check failed: %w", err)
		}
		if !allowed {
			return Response{}, ErrUnauthorized
		}
	}

	cacheKey := answercache.Key(scope, req.Query)
	if e.cache != nil {
		if entry, hit := e.cache.Get(ctx, cacheKey); hit {
			logger.Debug("[Fusion] cache hit", "owner_id", scope.OwnerID)
			return Response{
				Answer:         entry.Answer,
				Citations:      entry.Citations,
				Confidence:     entry.Confidence,
				RewrittenQuery: entry.RewrittenQuery,
				Outcome:        OutcomeCached,
				GraphEnhanced:  entry.GraphEnhanced,
			}, nil
		}
	}

	var (
		followup bool
		prevCtx  string
	)
	if e.detector != nil && req.PrevTurn != nil {
		detection := e.detector.Detect(ctx, req.Query, req.PrevTurn)
		followup = detection.IsFollowup
		if followup {
			prevCtx = convo.ContextFor(req.PrevTurn)
		}
	}

	rewritten, topK := e.rewrite(ctx, req.Query, scope, prevCtx, th)

	hits, facts, graphEnhanced, err := e.retrieve(ctx, rewritten, req.Query, scope, topK, th)
	if err != nil {
		// a failed search is not "nothing indexed"; surface it instead
		// of caching a refusal the store's recovery cannot clear
		return Response{}, fmt.Errorf("retrieval failed: %w", err)
	}

	confidence := aggregateConfidence(hits)
	if len(hits) == 0 || confidence < th.MinAnswerConfidence {
		resp := Response{
			Answer:         NoAnswerText,
			Confidence:     confidence,
			RewrittenQuery: rewritten,
			Outcome:        OutcomeNoAnswer,
			GraphEnhanced:  graphEnhanced,
			Followup:       followup,
		}
		e.writeCache(ctx, cacheKey, resp)
		return resp, nil
	}

	answer, err := e.generate(ctx, req.Query, hits, facts, graphEnhanced, th)
	if err != nil {
		return Response{}, fmt.Errorf("generation failed: %w", err)
	}

	resp := Response{
		Answer:         answer,
		Citations:      citationsFor(hits),
		Confidence:     confidence,
		RewrittenQuery: rewritten,
		Outcome:        OutcomeAnswered,
		GraphEnhanced:  graphEnhanced,
		Followup:       followup,
	}
	e.writeCache(ctx, cacheKey, resp)
	return resp, nil
}

// resolveScope fills in the scope level from the identifiers present
// when the caller left it unset.
func resolveScope(req Request) common.Scope {
	scope := req.Scope
	if scope.Level != "" {
		return scope
	}
	switch {
	case scope.FileID != "":
		scope.Level = common.ScopeFile
	case scope.FolderID != "":
		scope.Level = common.ScopeFolder
	default:
		scope.Level = common.ScopeDrive
	}
	return scope
}

// retrieve fans out the vector search and graph traversal and joins
// them. Graph failures degrade to vector-only; a vector search failure
// is returned to the caller.
func (e *Engine) retrieve(
	ctx context.Context,
	rewritten string,
	original string,
	scope common.Scope,
	topK int,
	th Thresholds,
) ([]index.Hit, []graphstore.Fact, bool, error) {
	var (
		hits         []index.Hit
		facts        []graphstore.Fact
		lookupFailed bool
	)

	graphEnhanced := e.graph != nil && e.graph.Available(ctx)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		found, err := e.vector.Search(gCtx, rewritten, scope, topK)
		if err != nil {
			return err
		}
		hits = found
		return nil
	})

	if graphEnhanced {
		g.Go(func() error {
			terms := queryTerms(rewritten + " " + original)
			found, err := e.graph.Lookup(gCtx, terms, graphstore.LookupParams{
				MinConfidence: th.GraphMinConfidence,
				Scope:         scope,
				Limit:         th.GraphLimit,
			})
			if err != nil {
				// degraded, not fatal
				logger.Warn("[Fusion] graph lookup failed", "error", err)
				lookupFailed = true
				return nil
			}
			facts = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("[Fusion] vector search failed", "error", err)
		return nil, nil, false, err
	}
	if lookupFailed {
		graphEnhanced = false
	}

	if len(facts) == 0 {
		facts = nil
	}
	return hits, facts, graphEnhanced, nil
}

// generate assembles the bounded context and calls the generative
// model, retrying once on transient failure.
func (e *Engine) generate(
	ctx context.Context,
	query string,
	hits []index.Hit,
	facts []graphstore.Fact,
	graphEnhanced bool,
	th Thresholds,
) (string, error) {
	contextText := buildContext(hits, facts, graphEnhanced, th.MaxContextChars)

	return util.RetryWithContext(ctx, 2, func(rCtx context.Context) (string, error) {
		return e.ai.GenerateCompletion(
			rCtx,
			query,
			ai.WithSystemPrompts(fmt.Sprintf(ai.AnswerPrompt, contextText)),
		)
	})
}

func (e *Engine) writeCache(ctx context.Context, key string, resp Response) {
	if e.cache == nil {
		return
	}
	err := e.cache.Set(ctx, key, answercache.Entry{
		Answer:         resp.Answer,
		Citations:      resp.Citations,
		Confidence:     resp.Confidence,
		RewrittenQuery: resp.RewrittenQuery,
		NoAnswer:       resp.Outcome == OutcomeNoAnswer,
		GraphEnhanced:  resp.GraphEnhanced,
	})
	if err != nil {
		logger.Warn("[Fusion] cache write failed", "error", err)
	}
}

// citationsFor emits one citation per retrieved chunk. Citations are
// retrieval provenance, not textual attribution, so every hit appears
// whether or not its words made it into the answer.
func citationsFor(hits []index.Hit) []common.Citation {
	citations := make([]common.Citation, 0, len(hits))
	for _, hit := range hits {
		citations = append(citations, common.Citation{
			FileID:  hit.Chunk.FileID,
			ChunkNo: hit.Chunk.ChunkNo,
			Page:    hit.Chunk.Page,
			Source:  hit.Chunk.Source,
		})
	}
	return citations
}

// aggregateConfidence converts the average cosine distance of the hits
// into a confidence score. Distance 0 maps to 1.0 and distance 2 (the
// cosine maximum) to 0.0.
func aggregateConfidence(hits []index.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sum float64
	for _, hit := range hits {
		sum += hit.Distance
	}
	avg := sum / float64(len(hits))
	return common.ClampConfidence(1 - avg/2)
}
