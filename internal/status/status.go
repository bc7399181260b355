// Package status tracks per-file ingestion state in postgres and
// aggregates it into folder readiness.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docsage-ai/docsage/pkg/common"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// State is the lifecycle state of one ingested file.
type State string

const (
	StatePending      State = "pending"
	StateProcessing   State = "processing"
	StateIndexed      State = "indexed"
	StateFailed       State = "failed"
	StateDeleteFailed State = "delete_failed"
)

// ErrNotFound is returned when no status row exists for a file.
var ErrNotFound = errors.New("no status recorded for file")

// Conn is the subset of a pgx pool the store needs.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// FileStatus is one file's current state with extraction counts.
type FileStatus struct {
	FileID        string    `json:"file_id"`
	FolderID      string    `json:"folder_id,omitempty"`
	OwnerID       string    `json:"owner_id"`
	SourceName    string    `json:"source_name"`
	State         State     `json:"state"`
	EntityCount   int       `json:"entity_count"`
	RelationCount int       `json:"relation_count"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FolderReadiness aggregates the states of a folder's files. Ready
// means every file reached a terminal state and none of them failed
// processing.
type FolderReadiness struct {
	FolderID   string       `json:"folder_id"`
	Ready      bool         `json:"ready"`
	Files      []FileStatus `json:"files"`
	Indexed    int          `json:"indexed"`
	Processing int          `json:"processing"`
	Failed     int          `json:"failed"`
}

type Store struct {
	conn Conn
}

// New creates a status store over the given connection.
func New(conn Conn) *Store {
	return &Store{conn: conn}
}

// Record upserts the status row of one file. Counts and the error
// message always reflect the latest transition.
func (s *Store) Record(ctx context.Context, doc common.Document, state State, entities, relations int, errMsg string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO file_status (file_id, folder_id, owner_id, source_name, state, entity_count, relation_count, error_message, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (file_id) DO UPDATE SET
			state = EXCLUDED.state,
			entity_count = EXCLUDED.entity_count,
			relation_count = EXCLUDED.relation_count,
			error_message = EXCLUDED.error_message,
			updated_at = now()
	`, doc.FileID, nullable(doc.FolderID), doc.OwnerID, doc.SourceName, string(state), entities, relations, nullable(errMsg))
	if err != nil {
		return fmt.Errorf("failed to record status for %s: %w", doc.FileID, err)
	}
	return nil
}

// Get returns the status row of one file.
func (s *Store) Get(ctx context.Context, ownerID, fileID string) (FileStatus, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT file_id, COALESCE(folder_id, ''), owner_id, source_name, state,
		       entity_count, relation_count, COALESCE(error_message, ''), updated_at
		FROM file_status
		WHERE owner_id = $1 AND file_id = $2
	`, ownerID, fileID)

	status, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return FileStatus{}, ErrNotFound
		}
		return FileStatus{}, fmt.Errorf("failed to get status for %s: %w", fileID, err)
	}
	return status, nil
}

// Folder returns the readiness aggregation of a folder.
func (s *Store) Folder(ctx context.Context, ownerID, folderID string) (FolderReadiness, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT file_id, COALESCE(folder_id, ''), owner_id, source_name, state,
		       entity_count, relation_count, COALESCE(error_message, ''), updated_at
		FROM file_status
		WHERE owner_id = $1 AND folder_id = $2
		ORDER BY source_name
	`, ownerID, folderID)
	if err != nil {
		return FolderReadiness{}, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}
	defer rows.Close()

	readiness := FolderReadiness{FolderID: folderID}
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return FolderReadiness{}, fmt.Errorf("failed to scan status row: %w", err)
		}
		readiness.Files = append(readiness.Files, status)
		switch status.State {
		case StateIndexed:
			readiness.Indexed++
		case StatePending, StateProcessing:
			readiness.Processing++
		default:
			readiness.Failed++
		}
	}
	if err := rows.Err(); err != nil {
		return FolderReadiness{}, fmt.Errorf("failed to read folder %s: %w", folderID, err)
	}

	readiness.Ready = len(readiness.Files) > 0 && readiness.Processing == 0 && readiness.Failed == 0
	return readiness, nil
}

// Delete removes the status row, called after a successful full delete.
func (s *Store) Delete(ctx context.Context, fileID string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM file_status WHERE file_id = $1`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete status for %s: %w", fileID, err)
	}
	return nil
}

func scanStatus(row pgxv5.Row) (FileStatus, error) {
	var (
		status FileStatus
		state  string
	)
	err := row.Scan(
		&status.FileID, &status.FolderID, &status.OwnerID, &status.SourceName,
		&state, &status.EntityCount, &status.RelationCount,
		&status.ErrorMessage, &status.UpdatedAt,
	)
	if err != nil {
		return FileStatus{}, err
	}
	status.State = State(state)
	return status, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
