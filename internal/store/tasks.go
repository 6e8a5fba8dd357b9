// Task mapping accessors. At most one row exists per source task; upserts
// are atomic create-or-update keyed by source_id.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// LookupTask returns the mapping for a source task, or types.ErrNotFound.
func (s *Store) LookupTask(sourceID string) (*types.TaskMapping, error) {
	if sourceID == "" {
		return nil, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	if s.dryRun {
		if m, ok := s.overlayTasks[sourceID]; ok {
			cp := m
			return &cp, nil
		}
	}

	row := s.db.QueryRow(
		`SELECT source_id, target_id, source_updated_at, sync_status, last_synced_at, reason
		 FROM task_mappings WHERE source_id = ?`, sourceID)

	var m types.TaskMapping
	var updatedAt, syncedAt string
	err := row.Scan(&m.SourceID, &m.TargetID, &updatedAt, &m.SyncStatus, &syncedAt, &m.Reason)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up task mapping %s: %w", sourceID, err)
	}
	m.SourceUpdatedAt = parseTime(updatedAt)
	m.LastSyncedAt = parseTime(syncedAt)
	return &m, nil
}

// UpsertTask creates or updates the mapping for m.SourceID.
func (s *Store) UpsertTask(m types.TaskMapping) error {
	if m.SourceID == "" {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}

	if s.dryRun {
		s.overlayTasks[m.SourceID] = m
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO task_mappings (source_id, target_id, source_updated_at, sync_status, last_synced_at, reason)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
		     target_id = excluded.target_id,
		     source_updated_at = excluded.source_updated_at,
		     sync_status = excluded.sync_status,
		     last_synced_at = excluded.last_synced_at,
		     reason = excluded.reason`,
		m.SourceID, m.TargetID, formatTime(m.SourceUpdatedAt), m.SyncStatus,
		formatTime(m.LastSyncedAt), m.Reason)
	if err != nil {
		return fmt.Errorf("upserting task mapping %s: %w", m.SourceID, err)
	}
	return nil
}

// MarkTaskFailed records a failure for the source task so a later run
// retries it. An existing target_id and source timestamp are preserved.
func (s *Store) MarkTaskFailed(sourceID, reason string) error {
	return s.markTask(sourceID, types.StatusFailed, reason)
}

// MarkTaskSkipped records a deliberate, attributable skip for the task.
func (s *Store) MarkTaskSkipped(sourceID, reason string) error {
	return s.markTask(sourceID, types.StatusSkipped, reason)
}

func (s *Store) markTask(sourceID, status, reason string) error {
	if sourceID == "" {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}

	now := time.Now()

	if s.dryRun {
		m := s.overlayTasks[sourceID]
		m.SourceID = sourceID
		m.SyncStatus = status
		m.Reason = reason
		m.LastSyncedAt = now
		s.overlayTasks[sourceID] = m
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO task_mappings (source_id, sync_status, last_synced_at, reason)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
		     sync_status = excluded.sync_status,
		     last_synced_at = excluded.last_synced_at,
		     reason = excluded.reason`,
		sourceID, status, formatTime(now), reason)
	if err != nil {
		return fmt.Errorf("marking task %s %s: %w", sourceID, status, err)
	}
	return nil
}
