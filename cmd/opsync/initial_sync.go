// Initial-sync command migrates the full work set of every configured
// project.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initialSyncCmd = &cobra.Command{
	Use:   "initial-sync",
	Short: "Migrate all tasks of the configured projects",
	Long: `Initial-sync walks every configured project and migrates all of its
tasks, comments, and attachments. Tasks that were migrated by an earlier run
are updated or left unchanged, so the command is safe to repeat.`,
	Args: cobra.NoArgs,
	RunE: runInitialSync,
}

func runInitialSync(cmd *cobra.Command, args []string) error {
	eng, st, err := newEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Sync.DryRun {
		fmt.Println("dry-run: no changes will be written")
	}

	stats, err := eng.InitialSync(cmd.Context())
	if err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}
	return reportStats(stats)
}
