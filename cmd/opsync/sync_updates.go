// Sync-updates command migrates tasks changed since a cutoff.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagSince string

// sinceLayouts accepts full timestamps and bare dates.
var sinceLayouts = []string{time.RFC3339, "2006-01-02"}

var syncUpdatesCmd = &cobra.Command{
	Use:   "sync-updates",
	Short: "Migrate tasks changed since the last run",
	Long: `Sync-updates migrates tasks whose source updated_at is at or after the
cutoff. Without --since, each project's stored watermark from its previous
run is used.`,
	Args: cobra.NoArgs,
	RunE: runSyncUpdates,
}

func init() {
	syncUpdatesCmd.Flags().StringVar(&flagSince, "since", "", "cutoff timestamp (RFC 3339 or YYYY-MM-DD; default: stored watermark)")
}

func runSyncUpdates(cmd *cobra.Command, args []string) error {
	var since time.Time
	if flagSince != "" {
		parsed, err := parseSince(flagSince)
		if err != nil {
			return &userError{err: err}
		}
		since = parsed
	}

	eng, st, err := newEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Sync.DryRun {
		fmt.Println("dry-run: no changes will be written")
	}

	stats, err := eng.SyncUpdates(cmd.Context(), since)
	if err != nil {
		return fmt.Errorf("sync updates: %w", err)
	}
	return reportStats(stats)
}

func parseSince(value string) (time.Time, error) {
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q (want RFC 3339 or YYYY-MM-DD)", value)
}
