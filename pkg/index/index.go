// Package index embeds chunks and persists them in a pgvector-backed
// similarity index, namespaced by owner, folder and file.
package index

import (
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

// Conn is the subset of a pgx pool the index needs, so tests and
// transactions can stand in for a live pool.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// Embedder is the embedding capability the index depends on.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
}

// Hit is one similarity match. Distance is the cosine distance of the
// query embedding to the chunk embedding; lower is closer.
type Hit struct {
	Chunk    common.Chunk
	Category common.FileCategory
	Distance float64
}

// parallelEmbeds bounds concurrent embedding calls per file.
const parallelEmbeds = 4

type Index struct {
	conn     Conn
	embedder Embedder
}

// New creates an index over the given connection and embedder.
func New(conn Conn, embedder Embedder) *Index {
	return &Index{conn: conn, embedder: embedder}
}

// UpsertFile replaces the indexed chunks of one file. Embeddings are
// computed up front; the delete and inserts then run in one transaction
// so re-ingesting a file can never duplicate entries.
func (ix *Index) UpsertFile(ctx context.Context, doc common.Document, chunks []common.Chunk) error {
	embeddings := make([]pgvector.Vector, len(chunks))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelEmbeds)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := ix.embedder.GenerateEmbedding(gCtx, []byte(chunk.Text))
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of %s: %w", chunk.ChunkNo, doc.FileID, err)
			}
			embeddings[i] = pgvector.NewVector(vec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tx, err := ix.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunk_index WHERE file_id = $1`, doc.FileID); err != nil {
		return fmt.Errorf("failed to clear index for %s: %w", doc.FileID, err)
	}

	for i, chunk := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO chunk_index
				(chunk_id, file_id, folder_id, owner_id, chunk_no, page, source, category, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			chunk.ID, chunk.FileID, nullable(chunk.FolderID), doc.OwnerID,
			chunk.ChunkNo, chunk.Page, chunk.Source, string(doc.Category),
			chunk.Text, embeddings[i],
		)
		if err != nil {
			return fmt.Errorf("failed to index chunk %d of %s: %w", chunk.ChunkNo, doc.FileID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Debug("[Index] upserted file", "file_id", doc.FileID, "chunks", len(chunks))
	return nil
}

// DeleteFile removes every indexed chunk of a file.
func (ix *Index) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := ix.conn.Exec(ctx, `DELETE FROM chunk_index WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("failed to delete index entries for %s: %w", fileID, err)
	}
	return nil
}

// Search embeds the query and returns the topK closest chunks within
// the scope, ordered by ascending distance.
func (ix *Index) Search(ctx context.Context, query string, scope common.Scope, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	vec, err := ix.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := `
		SELECT chunk_id, file_id, COALESCE(folder_id, ''), chunk_no, page, source, category, content,
			embedding <=> $1 AS distance
		FROM chunk_index
		WHERE owner_id = $2`
	args := []any{pgvector.NewVector(vec), scope.OwnerID}

	switch scope.Level {
	case common.ScopeFolder:
		args = append(args, scope.FolderID)
		sql += fmt.Sprintf(" AND folder_id = $%d", len(args))
	case common.ScopeFile:
		args = append(args, scope.FileID)
		sql += fmt.Sprintf(" AND file_id = $%d", len(args))
	}

	args = append(args, topK)
	sql += fmt.Sprintf(" ORDER BY distance LIMIT $%d", len(args))

	rows, err := ix.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			hit      Hit
			category string
		)
		err := rows.Scan(
			&hit.Chunk.ID, &hit.Chunk.FileID, &hit.Chunk.FolderID,
			&hit.Chunk.ChunkNo, &hit.Chunk.Page, &hit.Chunk.Source,
			&category, &hit.Chunk.Text, &hit.Distance,
		)
		if err != nil {
			return nil, err
		}
		hit.Category = common.FileCategory(category)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hits, nil
}

// nullable maps an empty id to NULL so folder scoping can distinguish
// "no folder" from an empty string.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}
