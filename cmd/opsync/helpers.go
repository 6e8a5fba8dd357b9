// Shared wiring between subcommands.
package main

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/opsync/internal/engine"
	"github.com/mesh-intelligence/opsync/internal/megaplan"
	"github.com/mesh-intelligence/opsync/internal/openproject"
	"github.com/mesh-intelligence/opsync/internal/store"
)

// newEngine opens the mapping store and wires the full sync stack. The
// caller must close the returned store.
func newEngine() (*engine.Engine, *store.Store, error) {
	st, err := store.Open(cfg.StateDB, cfg.Sync.DryRun)
	if err != nil {
		return nil, nil, fmt.Errorf("open mapping store %s: %w", cfg.StateDB, err)
	}

	source := megaplan.New(cfg.Megaplan, cfg.Sync.PageSize, log)
	sink := openproject.New(cfg.OpenProject, log)
	return engine.New(cfg, source, sink, st, log), st, nil
}

// reportStats prints per-project run results and returns errRunIncomplete
// when any project aborted or left failed records.
func reportStats(stats map[string]*engine.Stats) error {
	projects := make([]string, 0, len(stats))
	for id := range stats {
		projects = append(projects, id)
	}
	sort.Strings(projects)

	incomplete := false
	for _, id := range projects {
		s := stats[id]
		if s.Error != "" {
			fmt.Printf("project %s: ABORTED: %s\n", id, s.Error)
			incomplete = true
			continue
		}
		fmt.Printf("project %s: created=%d updated=%d unchanged=%d failed=%d skipped=%d comments=%d attachments=%d\n",
			id, s.Created, s.Updated, s.Unchanged, s.Failed, s.Skipped, s.Comments, s.Attachments)
		if s.Failed > 0 {
			incomplete = true
		}
	}
	if incomplete {
		return errRunIncomplete
	}
	return nil
}
