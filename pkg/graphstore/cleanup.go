package graphstore

import (
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CleanupLowConfidence removes relations and entities below threshold.
// Edges go first so deleting a node can never leave a dangling relation.
func (s *Store) CleanupLowConfidence(ctx context.Context, threshold float64) error {
	if s == nil || s.driver == nil {
		return ErrUnavailable
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		err := runConsume(ctx, tx, `
MATCH ()-[r:RELATES]->()
WHERE r.confidence < $threshold
DELETE r
`, map[string]any{"threshold": threshold})
		if err != nil {
			return nil, err
		}

		return nil, runConsume(ctx, tx, `
MATCH (e:Entity)
WHERE e.confidence < $threshold
DETACH DELETE e
`, map[string]any{"threshold": threshold})
	})
	if err != nil {
		return fmt.Errorf("low-confidence cleanup failed: %w", err)
	}

	logger.Debug("[Graph] low-confidence cleanup done", "threshold", threshold)
	return nil
}

// CleanupOrphanedEntities removes entities no chunk mentions anymore,
// together with any relations still attached to them.
func (s *Store) CleanupOrphanedEntities(ctx context.Context) (int, error) {
	if s == nil || s.driver == nil {
		return 0, ErrUnavailable
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity)
WHERE NOT ( (:Chunk)-[:MENTIONS]->(e) )
WITH e
DETACH DELETE e
RETURN count(*)
`, nil)
		if err != nil {
			return nil, err
		}

		removed := 0
		if res.Next(ctx) {
			removed = int(floatValue(res.Record().Values[0]))
		}
		return removed, res.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("orphan cleanup failed: %w", err)
	}

	removed := result.(int)
	if removed > 0 {
		logger.Debug("[Graph] removed orphaned entities", "count", removed)
	}
	return removed, nil
}

// DeleteDocument removes a document, its chunks and their mention
// edges, the relations recorded from that file, and finally any entity
// orphaned by the removal.
func (s *Store) DeleteDocument(ctx context.Context, fileID string) error {
	if s == nil || s.driver == nil {
		return ErrUnavailable
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		err := runConsume(ctx, tx, `
MATCH ()-[r:RELATES {file_id: $file_id}]->()
DELETE r
`, map[string]any{"file_id": fileID})
		if err != nil {
			return nil, err
		}

		err = runConsume(ctx, tx, `
MATCH (d:Document {file_id: $file_id})
OPTIONAL MATCH (d)-[:CONTAINS]->(c:Chunk)
DETACH DELETE d, c
`, map[string]any{"file_id": fileID})
		if err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graph delete for %s failed: %w", fileID, err)
	}

	if _, err := s.CleanupOrphanedEntities(ctx); err != nil {
		return err
	}

	logger.Debug("[Graph] deleted document", "file_id", fileID)
	return nil
}
