// Attachment mapping accessors, keyed by the (source task, source
// attachment) pair. A skipped attachment carries the source size at decision
// time; it is reconsidered only when that size changes.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// LookupAttachment returns the mapping for a source attachment, or
// types.ErrNotFound.
func (s *Store) LookupAttachment(taskID, attachmentID string) (*types.AttachmentMapping, error) {
	if taskID == "" || attachmentID == "" {
		return nil, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	if s.dryRun {
		if m, ok := s.overlayAttachments[pairKey(taskID, attachmentID)]; ok {
			cp := m
			return &cp, nil
		}
	}

	row := s.db.QueryRow(
		`SELECT source_task_id, source_attachment_id, target_id, size, sync_status, last_synced_at, reason
		 FROM attachment_mappings WHERE source_task_id = ? AND source_attachment_id = ?`,
		taskID, attachmentID)

	var m types.AttachmentMapping
	var syncedAt string
	err := row.Scan(&m.SourceTaskID, &m.SourceAttachmentID, &m.TargetID, &m.Size, &m.SyncStatus, &syncedAt, &m.Reason)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up attachment mapping %s: %w", pairKey(taskID, attachmentID), err)
	}
	m.LastSyncedAt = parseTime(syncedAt)
	return &m, nil
}

// UpsertAttachment creates or updates the mapping for the attachment pair key.
func (s *Store) UpsertAttachment(m types.AttachmentMapping) error {
	if m.SourceTaskID == "" || m.SourceAttachmentID == "" {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}

	if s.dryRun {
		s.overlayAttachments[pairKey(m.SourceTaskID, m.SourceAttachmentID)] = m
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO attachment_mappings (source_task_id, source_attachment_id, target_id, size, sync_status, last_synced_at, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_task_id, source_attachment_id) DO UPDATE SET
		     target_id = excluded.target_id,
		     size = excluded.size,
		     sync_status = excluded.sync_status,
		     last_synced_at = excluded.last_synced_at,
		     reason = excluded.reason`,
		m.SourceTaskID, m.SourceAttachmentID, m.TargetID, m.Size, m.SyncStatus,
		formatTime(m.LastSyncedAt), m.Reason)
	if err != nil {
		return fmt.Errorf("upserting attachment mapping %s: %w", pairKey(m.SourceTaskID, m.SourceAttachmentID), err)
	}
	return nil
}

// MarkAttachmentSkipped records a size-ceiling skip with its reason.
func (s *Store) MarkAttachmentSkipped(taskID, attachmentID string, size int64, reason string) error {
	return s.UpsertAttachment(types.AttachmentMapping{
		SourceTaskID:       taskID,
		SourceAttachmentID: attachmentID,
		Size:               size,
		SyncStatus:         types.StatusSkipped,
		LastSyncedAt:       time.Now(),
		Reason:             reason,
	})
}

// MarkAttachmentFailed records a transfer failure so a later run retries it.
func (s *Store) MarkAttachmentFailed(taskID, attachmentID string, size int64, reason string) error {
	return s.UpsertAttachment(types.AttachmentMapping{
		SourceTaskID:       taskID,
		SourceAttachmentID: attachmentID,
		Size:               size,
		SyncStatus:         types.StatusFailed,
		LastSyncedAt:       time.Now(),
		Reason:             reason,
	})
}
