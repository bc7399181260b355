package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/pkg/logger"
)

// ProcessDelete removes one file from every store: vector index first,
// then graph, then the blob and cached answers. Deletion succeeds only
// when BOTH stores confirm; a partial failure is recorded as
// delete_failed so the retry (or an operator, after the DLQ) can re-run
// the cascade. Every step is idempotent.
func (p *Pipeline) ProcessDelete(ctx context.Context, body []byte) error {
	var msg DeleteMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to decode delete message: %w", err)
	}
	doc := msg.Document

	fail := func(step string, err error) error {
		wrapped := fmt.Errorf("delete %s for %s: %w", step, doc.FileID, err)
		if recordErr := p.Status.Record(ctx, doc, status.StateDeleteFailed, 0, 0, wrapped.Error()); recordErr != nil {
			logger.Error("[Delete] failed to record delete failure", "file_id", doc.FileID, "error", recordErr)
		}
		return wrapped
	}

	if err := p.Index.DeleteFile(ctx, doc.FileID); err != nil {
		return fail("vector index", err)
	}

	if p.Graph != nil {
		if !p.Graph.Available(ctx) {
			return fail("graph", fmt.Errorf("graph store unavailable"))
		}
		if err := p.Graph.DeleteDocument(ctx, doc.FileID); err != nil {
			return fail("graph", err)
		}
	}

	if err := p.Cache.InvalidateFile(ctx, doc.FileID); err != nil {
		logger.Warn("[Delete] cache invalidation failed", "file_id", doc.FileID, "error", err)
	}
	p.Loaders.Invalidate(doc.FileID)

	if msg.ObjectKey != "" {
		if err := p.Blobs.Delete(ctx, msg.ObjectKey); err != nil {
			logger.Warn("[Delete] blob removal failed", "file_id", doc.FileID, "key", msg.ObjectKey, "error", err)
		}
	}

	if err := p.Status.Delete(ctx, doc.FileID); err != nil {
		return fail("status", err)
	}

	logger.Info("[Delete] file removed from all stores", "file_id", doc.FileID)
	return nil
}
