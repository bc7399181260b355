package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/pkg/chunker"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/detect"
	"github.com/docsage-ai/docsage/pkg/extract"
	"github.com/docsage-ai/docsage/pkg/graphstore"
	"github.com/docsage-ai/docsage/pkg/loader"
	"github.com/docsage-ai/docsage/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// parallelExtracts bounds concurrent extraction calls per file.
const parallelExtracts = 2

// errUnparsable marks deterministic content failures a queue retry
// cannot fix. They are recorded and acked instead of retried.
var errUnparsable = errors.New("unparsable file")

// BlobStore is the object store surface the pipeline needs.
type BlobStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// StatusStore records per-file processing state transitions.
type StatusStore interface {
	Record(ctx context.Context, doc common.Document, state status.State, entities, relations int, errMsg string) error
	Delete(ctx context.Context, fileID string) error
}

// ChunkIndex is the vector index surface the pipeline needs.
type ChunkIndex interface {
	UpsertFile(ctx context.Context, doc common.Document, chunks []common.Chunk) error
	DeleteFile(ctx context.Context, fileID string) error
}

// AnswerInvalidator drops cached answers touching a file.
type AnswerInvalidator interface {
	InvalidateFile(ctx context.Context, fileID string) error
}

// Pipeline holds the collaborators shared by the ingest and delete
// message handlers.
type Pipeline struct {
	Blobs     BlobStore
	Loaders   loader.Registry
	Chunker   *chunker.Chunker
	Index     ChunkIndex
	Extractor *extract.Extractor
	Extract   extract.Config
	Graph     *graphstore.Store
	Status    StatusStore
	Cache     AnswerInvalidator
}

// ProcessIngest runs the full ingest pipeline for one file:
// detect, load, chunk, then index and extract in parallel, then status.
// Failures of a single file are recorded in its status row; a returned
// error drives the queue retry, never a batch abort. Content the
// loaders cannot parse is recorded as failed and acked, since no retry
// can change the bytes.
func (p *Pipeline) ProcessIngest(ctx context.Context, body []byte) error {
	var msg IngestMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode ingest message: %w", err)
	}
	doc := msg.Document

	category := doc.Category
	if category == "" {
		category = detect.Detect(doc.SourceName, msg.ContentType)
		doc.Category = category
	}
	if !detect.Supported(category) {
		// skip, not an error: the message must not be retried
		logger.Warn("[Ingest] unsupported file type skipped",
			"file_id", doc.FileID, "source", doc.SourceName, "content_type", msg.ContentType)
		return nil
	}

	// the blob may have changed since a previous ingest of this file
	p.Loaders.Invalidate(doc.FileID)

	if err := p.Status.Record(ctx, doc, status.StateProcessing, 0, 0, ""); err != nil {
		return err
	}

	chunks, result, err := p.ingest(ctx, doc, msg.ObjectKey, category)
	if err != nil {
		if recordErr := p.Status.Record(ctx, doc, status.StateFailed, 0, 0, err.Error()); recordErr != nil {
			logger.Error("[Ingest] failed to record failure", "file_id", doc.FileID, "error", recordErr)
		}
		if errors.Is(err, errUnparsable) {
			// retrying cannot fix the content, record and ack
			logger.Warn("[Ingest] file skipped", "file_id", doc.FileID, "error", err)
			return nil
		}
		return err
	}

	// stale answers over the previous content
	if err := p.Cache.InvalidateFile(ctx, doc.FileID); err != nil {
		logger.Warn("[Ingest] cache invalidation failed", "file_id", doc.FileID, "error", err)
	}

	logger.Info("[Ingest] file indexed",
		"file_id", doc.FileID, "chunks", len(chunks),
		"entities", len(result.Entities), "relations", len(result.Relations),
		"rejected", result.Rejected)

	return p.Status.Record(ctx, doc, status.StateIndexed,
		len(result.Entities), len(result.Relations), "")
}

func (p *Pipeline) ingest(
	ctx context.Context,
	doc common.Document,
	objectKey string,
	category common.FileCategory,
) ([]common.Chunk, extract.Result, error) {
	data, err := p.Blobs.GetBytes(ctx, objectKey)
	if err != nil {
		return nil, extract.Result{}, err
	}

	ld, ok := p.Loaders.For(category)
	if !ok {
		return nil, extract.Result{}, fmt.Errorf("no loader registered for category %s", category)
	}

	units, err := ld.Load(ctx, doc, data)
	if err != nil {
		return nil, extract.Result{}, fmt.Errorf("%w: %s: %v", errUnparsable, doc.SourceName, err)
	}

	chunks, err := p.Chunker.Chunk(doc, units)
	if err != nil {
		return nil, extract.Result{}, fmt.Errorf("%w: %s: %v", errUnparsable, doc.SourceName, err)
	}
	if len(chunks) == 0 {
		return nil, extract.Result{}, fmt.Errorf("%w: %s: no indexable content", errUnparsable, doc.SourceName)
	}

	var aggregated extract.Result

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Index.UpsertFile(gCtx, doc, chunks)
	})
	g.Go(func() error {
		result, err := p.extractToGraph(gCtx, doc, chunks)
		if err != nil {
			return err
		}
		aggregated = result
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, extract.Result{}, err
	}

	return chunks, aggregated, nil
}

// extractToGraph runs extraction over every chunk and persists the
// aggregated result. Per-chunk failures are tolerated; the graph write
// proceeds with whatever extraction produced. The graph store being
// down is also tolerated, queries then run vector-only.
func (p *Pipeline) extractToGraph(
	ctx context.Context,
	doc common.Document,
	chunks []common.Chunk,
) (extract.Result, error) {
	results := make([]extract.Result, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelExtracts)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = p.Extractor.ExtractChunk(gCtx, doc, chunk, p.Extract)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return extract.Result{}, err
	}

	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
		}
	}
	if failed > 0 {
		logger.Warn("[Ingest] extraction failed for some chunks",
			"file_id", doc.FileID, "failed", failed, "total", len(chunks))
	}

	aggregated := extract.Aggregate(results, p.Extract)

	if p.Graph == nil || !p.Graph.Available(ctx) {
		logger.Warn("[Ingest] graph store unavailable, skipping graph write", "file_id", doc.FileID)
		return aggregated, nil
	}

	start := time.Now()
	err := p.Graph.UpsertFile(ctx, doc, chunks, aggregated.Entities, aggregated.Relations, aggregated.Mentions)
	if err != nil {
		return extract.Result{}, fmt.Errorf("graph upsert failed for %s: %w", doc.FileID, err)
	}
	logger.Debug("[Ingest] graph updated",
		"file_id", doc.FileID, "entities", len(aggregated.Entities), "duration_ms", time.Since(start).Milliseconds())

	return aggregated, nil
}
