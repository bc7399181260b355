package status

import (
	"context"
	"fmt"

	"github.com/docsage-ai/docsage/pkg/common"
)

// CanAccess reports whether the owner may query the scope. Drive scope
// is always the caller's own. File and folder scope are denied when the
// identifier is registered to a different owner; an unknown identifier
// is allowed through and simply retrieves nothing.
func (s *Store) CanAccess(ctx context.Context, ownerID string, scope common.Scope) (bool, error) {
	switch scope.Level {
	case common.ScopeFile:
		return s.ownedBy(ctx, `SELECT owner_id FROM file_status WHERE file_id = $1 LIMIT 1`, scope.FileID, ownerID)
	case common.ScopeFolder:
		return s.ownedBy(ctx, `SELECT owner_id FROM file_status WHERE folder_id = $1 LIMIT 1`, scope.FolderID, ownerID)
	default:
		return true, nil
	}
}

func (s *Store) ownedBy(ctx context.Context, sql, id, ownerID string) (bool, error) {
	if id == "" {
		return true, nil
	}

	rows, err := s.conn.Query(ctx, sql, id)
	if err != nil {
		return false, fmt.Errorf("ownership check failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return true, rows.Err()
	}

	var registered string
	if err := rows.Scan(&registered); err != nil {
		return false, err
	}
	return registered == ownerID, nil
}
