// Reporting queries. Every skip and failure stays attributable to a source
// identifier and a reason; these views feed the status command.
package store

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// PendingRecord is a reporting view of one unfinished mapping row.
type PendingRecord struct {
	Kind         string    `json:"kind"`
	SourceKey    string    `json:"source_key"` // source_id, or task:comment / task:attachment pair.
	SyncStatus   string    `json:"sync_status"`
	Reason       string    `json:"reason,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at,omitempty"`
}

// pendingQueries maps a mapping kind to the query returning its unfinished
// rows (status pending or failed) with a composed source key.
var pendingQueries = map[string]string{
	types.KindTasks: `SELECT source_id, sync_status, reason, last_synced_at
		FROM task_mappings WHERE sync_status IN (?, ?) ORDER BY source_id`,
	types.KindComments: `SELECT source_task_id || ':' || source_comment_id, sync_status, reason, last_synced_at
		FROM comment_mappings WHERE sync_status IN (?, ?) ORDER BY source_task_id, source_comment_id`,
	types.KindAttachments: `SELECT source_task_id || ':' || source_attachment_id, sync_status, reason, last_synced_at
		FROM attachment_mappings WHERE sync_status IN (?, ?) ORDER BY source_task_id, source_attachment_id`,
}

// ListPending returns the unfinished mappings of the given kind, ordered by
// source identifier for stable output.
func (s *Store) ListPending(kind string) ([]PendingRecord, error) {
	query, ok := pendingQueries[kind]
	if !ok {
		return nil, types.ErrInvalidKind
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.Query(query, types.StatusPending, types.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("listing pending %s: %w", kind, err)
	}
	defer rows.Close()

	var records []PendingRecord
	for rows.Next() {
		rec := PendingRecord{Kind: kind}
		var syncedAt string
		if err := rows.Scan(&rec.SourceKey, &rec.SyncStatus, &rec.Reason, &syncedAt); err != nil {
			return nil, fmt.Errorf("scanning pending %s row: %w", kind, err)
		}
		rec.LastSyncedAt = parseTime(syncedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pending %s: %w", kind, err)
	}
	return records, nil
}

// CountByStatus returns mapping counts grouped by kind and sync status.
func (s *Store) CountByStatus() (map[string]map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}

	tables := map[string]string{
		types.KindTasks:       "task_mappings",
		types.KindComments:    "comment_mappings",
		types.KindAttachments: "attachment_mappings",
	}

	counts := make(map[string]map[string]int, len(tables))
	for kind, table := range tables {
		counts[kind] = make(map[string]int)
		rows, err := s.db.Query(
			"SELECT sync_status, COUNT(*) FROM " + table + " GROUP BY sync_status")
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", kind, err)
		}
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning %s count: %w", kind, err)
			}
			counts[kind][status] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("counting %s: %w", kind, err)
		}
		rows.Close()
	}
	return counts, nil
}
