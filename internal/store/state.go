// Per-project sync watermarks. The last successful pass timestamp is the
// default cutoff for the next incremental run.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// LastSync returns the recorded watermark for a project. The zero time means
// the project has never completed a pass.
func (s *Store) LastSync(projectID string) (time.Time, error) {
	if projectID == "" {
		return time.Time{}, types.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return time.Time{}, types.ErrStoreClosed
	}

	var lastSync string
	err := s.db.QueryRow(
		`SELECT last_sync FROM sync_state WHERE project_id = ?`, projectID,
	).Scan(&lastSync)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading sync state for project %s: %w", projectID, err)
	}
	return parseTime(lastSync), nil
}

// SetLastSync records the watermark for a project together with the run that
// produced it. A dry run never advances the watermark.
func (s *Store) SetLastSync(projectID string, moment time.Time, runID string) error {
	if projectID == "" {
		return types.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}

	if s.dryRun {
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO sync_state (project_id, last_sync, run_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		     last_sync = excluded.last_sync,
		     run_id = excluded.run_id`,
		projectID, formatTime(moment), runID)
	if err != nil {
		return fmt.Errorf("recording sync state for project %s: %w", projectID, err)
	}
	return nil
}
