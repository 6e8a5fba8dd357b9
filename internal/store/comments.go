// Comment mapping accessors, keyed by the (source task, source comment)
// pair. Comments are create-only on the target; a synced mapping is final.
package store

import (
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// LookupComment returns the mapping for a source comment, or types.ErrNotFound.
func (s *Store) LookupComment(taskID, commentID string) (*types.CommentMapping, error) {
	if taskID == "" || commentID == "" {
		return nil, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	if s.dryRun {
		if m, ok := s.overlayComments[pairKey(taskID, commentID)]; ok {
			cp := m
			return &cp, nil
		}
	}

	row := s.db.QueryRow(
		`SELECT source_task_id, source_comment_id, target_id, sync_status, last_synced_at, reason
		 FROM comment_mappings WHERE source_task_id = ? AND source_comment_id = ?`,
		taskID, commentID)

	var m types.CommentMapping
	var syncedAt string
	err := row.Scan(&m.SourceTaskID, &m.SourceCommentID, &m.TargetID, &m.SyncStatus, &syncedAt, &m.Reason)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up comment mapping %s: %w", pairKey(taskID, commentID), err)
	}
	m.LastSyncedAt = parseTime(syncedAt)
	return &m, nil
}

// UpsertComment creates or updates the mapping for the comment pair key.
func (s *Store) UpsertComment(m types.CommentMapping) error {
	if m.SourceTaskID == "" || m.SourceCommentID == "" {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}

	if s.dryRun {
		s.overlayComments[pairKey(m.SourceTaskID, m.SourceCommentID)] = m
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO comment_mappings (source_task_id, source_comment_id, target_id, sync_status, last_synced_at, reason)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_task_id, source_comment_id) DO UPDATE SET
		     target_id = excluded.target_id,
		     sync_status = excluded.sync_status,
		     last_synced_at = excluded.last_synced_at,
		     reason = excluded.reason`,
		m.SourceTaskID, m.SourceCommentID, m.TargetID, m.SyncStatus,
		formatTime(m.LastSyncedAt), m.Reason)
	if err != nil {
		return fmt.Errorf("upserting comment mapping %s: %w", pairKey(m.SourceTaskID, m.SourceCommentID), err)
	}
	return nil
}
