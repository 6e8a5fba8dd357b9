package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Store is the SQLite-backed mapping store. All writes go through a single
// connection pool guarded by mu; within one project the engine is strictly
// sequential, but cross-project runs may share a Store.
//
// In dry-run mode no persistent write happens: upserts and marks land in an
// in-memory overlay, and lookups consult the overlay before the database, so
// downstream ordering and comment/attachment sync behave exactly as in a
// live run.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	dryRun bool

	overlayTasks       map[string]types.TaskMapping
	overlayComments    map[string]types.CommentMapping
	overlayAttachments map[string]types.AttachmentMapping
	overlayUsers       map[string]types.UserMapping
}

// Open opens (or creates) the mapping database at path and ensures the
// schema exists. With dryRun set, subsequent writes are simulated in memory.
func Open(path string, dryRun bool) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state db schema: %w", err)
	}

	return &Store{
		db:                 db,
		dryRun:             dryRun,
		overlayTasks:       make(map[string]types.TaskMapping),
		overlayComments:    make(map[string]types.CommentMapping),
		overlayAttachments: make(map[string]types.AttachmentMapping),
		overlayUsers:       make(map[string]types.UserMapping),
	}, nil
}

// Close releases the database handle. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DryRun reports whether the store simulates writes.
func (s *Store) DryRun() bool { return s.dryRun }

// pairKey builds the overlay key for (task, comment/attachment) mappings.
func pairKey(taskID, id string) string { return taskID + ":" + id }

// formatTime renders t for storage; the zero time becomes the empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime is the inverse of formatTime. Unparseable values come back as
// the zero time rather than failing the read.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
