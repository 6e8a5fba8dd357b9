// User mapping cache. Resolved source user → target user correspondences
// are kept here so each user is looked up against the APIs at most once.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// LookupUser returns the cached target ID for a source user, or
// types.ErrNotFound.
func (s *Store) LookupUser(sourceID string) (int64, error) {
	if sourceID == "" {
		return 0, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, types.ErrStoreClosed
	}

	if s.dryRun {
		if m, ok := s.overlayUsers[sourceID]; ok {
			return m.TargetID, nil
		}
	}

	var targetID int64
	err := s.db.QueryRow(
		`SELECT target_id FROM user_mappings WHERE source_id = ?`, sourceID,
	).Scan(&targetID)
	if err == sql.ErrNoRows {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("looking up user mapping %s: %w", sourceID, err)
	}
	return targetID, nil
}

// UpsertUser caches a resolved user correspondence.
func (s *Store) UpsertUser(sourceID string, targetID int64) error {
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
		s.overlayUsers[sourceID] = types.UserMapping{SourceID: sourceID, TargetID: targetID, LastSyncedAt: now}
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO user_mappings (source_id, target_id, last_synced_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
		     target_id = excluded.target_id,
		     last_synced_at = excluded.last_synced_at`,
		sourceID, targetID, formatTime(now))
	if err != nil {
		return fmt.Errorf("upserting user mapping %s: %w", sourceID, err)
	}
	return nil
}
