package graphstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// statement is one cypher write with its parameters.
type statement struct {
	cypher string
	params map[string]any
}

// UpsertFile writes one file's document, chunks, entities, mentions and
// relations into the graph in a single transaction. Every statement is
// a MERGE keyed on a unique property, so re-ingesting a file or racing
// ingestions of the same entity name cannot create duplicates.
func (s *Store) UpsertFile(
	ctx context.Context,
	doc common.Document,
	chunks []common.Chunk,
	entities []common.Entity,
	relations []common.Relation,
	mentions []common.Mention,
) error {
	if s == nil || s.driver == nil {
		return ErrUnavailable
	}

	stmts := fileUpsertStatements(doc, chunks, entities, relations, mentions)

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			if err := runConsume(ctx, tx, st.cypher, st.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graph upsert for %s failed: %w", doc.FileID, err)
	}

	logger.Debug("[Graph] upserted file",
		"file_id", doc.FileID,
		"chunks", len(chunks),
		"entities", len(entities),
		"relations", len(relations),
	)
	return nil
}

// fileUpsertStatements builds the transaction: merge the document, drop
// everything the file contributed before (chunks with their mention
// edges, and its relation edges), then write the new content.
func fileUpsertStatements(
	doc common.Document,
	chunks []common.Chunk,
	entities []common.Entity,
	relations []common.Relation,
	mentions []common.Mention,
) []statement {
	stmts := []statement{
		{
			cypher: `
MERGE (d:Document {file_id: $file_id})
SET d.source_name = $source_name,
    d.category = $category,
    d.owner_id = $owner_id,
    d.folder_id = $folder_id
`,
			params: map[string]any{
				"file_id":     doc.FileID,
				"source_name": doc.SourceName,
				"category":    string(doc.Category),
				"owner_id":    doc.OwnerID,
				"folder_id":   doc.FolderID,
			},
		},
		{
			cypher: `
MATCH (d:Document {file_id: $file_id})-[:CONTAINS]->(c:Chunk)
DETACH DELETE c
`,
			params: map[string]any{"file_id": doc.FileID},
		},
		{
			cypher: `
MATCH ()-[r:RELATES {file_id: $file_id}]->()
DELETE r
`,
			params: map[string]any{"file_id": doc.FileID},
		},
	}

	if len(chunks) > 0 {
		chunkRows := make([]map[string]any, 0, len(chunks))
		for _, c := range chunks {
			chunkRows = append(chunkRows, map[string]any{
				"id":       c.ID,
				"file_id":  c.FileID,
				"chunk_no": c.ChunkNo,
				"page":     c.Page,
				"source":   c.Source,
			})
		}
		stmts = append(stmts, statement{
			cypher: `
UNWIND $chunks AS row
MATCH (d:Document {file_id: row.file_id})
MERGE (c:Chunk {id: row.id})
SET c.file_id = row.file_id,
    c.chunk_no = row.chunk_no,
    c.page = row.page,
    c.source = row.source
MERGE (d)-[:CONTAINS]->(c)
`,
			params: map[string]any{"chunks": chunkRows},
		})
	}

	if len(entities) > 0 {
		entityRows := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			attrs := "{}"
			if len(e.Attributes) > 0 {
				if raw, err := json.Marshal(e.Attributes); err == nil {
					attrs = string(raw)
				}
			}
			entityRows = append(entityRows, map[string]any{
				"name_key":   util.FoldKey(e.Name),
				"name":       e.Name,
				"type":       string(e.Type),
				"attributes": attrs,
				"confidence": common.ClampConfidence(e.Confidence),
			})
		}
		stmts = append(stmts, statement{
			cypher: `
UNWIND $entities AS row
MERGE (e:Entity {name_key: row.name_key})
ON CREATE SET e.name = row.name,
    e.type = row.type,
    e.attributes = row.attributes,
    e.confidence = row.confidence
ON MATCH SET e.confidence = CASE
        WHEN row.confidence > e.confidence THEN row.confidence
        ELSE e.confidence
    END
`,
			params: map[string]any{"entities": entityRows},
		})
	}

	if len(mentions) > 0 {
		mentionRows := make([]map[string]any, 0, len(mentions))
		for _, m := range mentions {
			mentionRows = append(mentionRows, map[string]any{
				"chunk_id": m.ChunkID,
				"name_key": util.FoldKey(m.EntityName),
			})
		}
		stmts = append(stmts, statement{
			cypher: `
UNWIND $mentions AS row
MATCH (c:Chunk {id: row.chunk_id})
MATCH (e:Entity {name_key: row.name_key})
MERGE (c)-[:MENTIONS]->(e)
`,
			params: map[string]any{"mentions": mentionRows},
		})
	}

	if len(relations) > 0 {
		relationRows := make([]map[string]any, 0, len(relations))
		for _, r := range relations {
			relationRows = append(relationRows, map[string]any{
				"subject_key": util.FoldKey(r.Subject),
				"object_key":  util.FoldKey(r.Object),
				"predicate":   r.Predicate,
				"context":     r.Context,
				"confidence":  common.ClampConfidence(r.Confidence),
				"chunk_no":    r.ChunkNo,
				"file_id":     doc.FileID,
			})
		}
		stmts = append(stmts, statement{
			cypher: `
UNWIND $relations AS row
MATCH (a:Entity {name_key: row.subject_key})
MATCH (b:Entity {name_key: row.object_key})
MERGE (a)-[r:RELATES {predicate: row.predicate, file_id: row.file_id}]->(b)
SET r.context = row.context,
    r.chunk_no = row.chunk_no,
    r.confidence = CASE
        WHEN r.confidence IS NULL OR row.confidence > r.confidence THEN row.confidence
        ELSE r.confidence
    END
`,
			params: map[string]any{"relations": relationRows},
		})
	}

	return stmts
}
