// Status command reports mapping-store contents: per-status counts and
// records that still need attention.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/opsync/internal/store"
	"github.com/mesh-intelligence/opsync/pkg/types"
)

var (
	flagStatusKind string
	flagStatusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report mapping counts and pending records",
	Long: `Status summarizes the mapping store: how many task, comment, and
attachment mappings exist in each sync status, and which records are still
pending or failed.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&flagStatusKind, "kind", "", "limit pending listing to one kind (tasks, comments, attachments)")
	statusCmd.Flags().BoolVar(&flagStatusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.StateDB, true)
	if err != nil {
		return fmt.Errorf("open mapping store %s: %w", cfg.StateDB, err)
	}
	defer st.Close()

	counts, err := st.CountByStatus()
	if err != nil {
		return fmt.Errorf("counting mappings: %w", err)
	}

	kinds := []string{types.KindTasks, types.KindComments, types.KindAttachments}
	if flagStatusKind != "" {
		kinds = []string{flagStatusKind}
	}

	pending := make(map[string][]store.PendingRecord, len(kinds))
	for _, kind := range kinds {
		records, err := st.ListPending(kind)
		if err != nil {
			return fmt.Errorf("listing pending %s: %w", kind, err)
		}
		pending[kind] = records
	}

	if flagStatusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"counts": counts, "pending": pending})
	}

	for _, kind := range kinds {
		statuses := make([]string, 0, len(counts[kind]))
		for status := range counts[kind] {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)

		fmt.Printf("%s:", kind)
		if len(statuses) == 0 {
			fmt.Print(" none")
		}
		for _, status := range statuses {
			fmt.Printf(" %s=%d", status, counts[kind][status])
		}
		fmt.Println()

		for _, record := range pending[kind] {
			fmt.Printf("  %s %s", record.SourceKey, record.SyncStatus)
			if record.Reason != "" {
				fmt.Printf(" (%s)", record.Reason)
			}
			fmt.Println()
		}
	}
	return nil
}
