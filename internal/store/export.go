// JSONL export of the mapping tables for audit. One file per table, written
// with the temp-file, fsync, rename pattern so a crash never leaves a
// half-written export behind.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// exportRow is the JSONL shape shared by all mapping tables.
type exportRow struct {
	SourceKey    string `json:"source_key"`
	TargetID     int64  `json:"target_id,omitempty"`
	Size         int64  `json:"size,omitempty"`
	SyncStatus   string `json:"sync_status"`
	UpdatedAt    string `json:"source_updated_at,omitempty"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Export writes task_mappings.jsonl, comment_mappings.jsonl, and
// attachment_mappings.jsonl into dir, creating it if needed. Returns the
// number of rows written per kind.
func (s *Store) Export(dir string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreClosed
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	exports := []struct {
		kind  string
		file  string
		query string
	}{
		{types.KindTasks, "task_mappings.jsonl",
			`SELECT source_id, target_id, 0, sync_status, source_updated_at, last_synced_at, reason
			 FROM task_mappings ORDER BY source_id`},
		{types.KindComments, "comment_mappings.jsonl",
			`SELECT source_task_id || ':' || source_comment_id, target_id, 0, sync_status, '', last_synced_at, reason
			 FROM comment_mappings ORDER BY source_task_id, source_comment_id`},
		{types.KindAttachments, "attachment_mappings.jsonl",
			`SELECT source_task_id || ':' || source_attachment_id, target_id, size, sync_status, '', last_synced_at, reason
			 FROM attachment_mappings ORDER BY source_task_id, source_attachment_id`},
	}

	written := make(map[string]int, len(exports))
	for _, exp := range exports {
		n, err := s.exportTable(filepath.Join(dir, exp.file), exp.query)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", exp.kind, err)
		}
		written[exp.kind] = n
	}
	return written, nil
}

func (s *Store) exportTable(path, query string) (int, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var records []exportRow
	for rows.Next() {
		var rec exportRow
		if err := rows.Scan(&rec.SourceKey, &rec.TargetID, &rec.Size, &rec.SyncStatus,
			&rec.UpdatedAt, &rec.LastSyncedAt, &rec.Reason); err != nil {
			return 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if err := writeJSONL(path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// writeJSONL atomically writes records as JSON lines using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []exportRow) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			cleanup()
			return fmt.Errorf("encoding record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("flushing export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming export: %w", err)
	}
	return nil
}
