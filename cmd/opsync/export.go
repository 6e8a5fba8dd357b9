// Export command dumps the mapping store to JSONL files for auditing.
package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/opsync/internal/store"
)

var flagExportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all mappings to JSONL files",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportDir, "out", "export", "output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.StateDB, true)
	if err != nil {
		return fmt.Errorf("open mapping store %s: %w", cfg.StateDB, err)
	}
	defer st.Close()

	counts, err := st.Export(flagExportDir)
	if err != nil {
		return fmt.Errorf("export mappings: %w", err)
	}

	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("%s: %d rows\n", kind, counts[kind])
	}
	fmt.Printf("mappings exported to %s\n", flagExportDir)
	return nil
}
