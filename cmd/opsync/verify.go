// Verify command checks connectivity and configuration before a real run.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/opsync/internal/megaplan"
	"github.com/mesh-intelligence/opsync/internal/openproject"
	"github.com/mesh-intelligence/opsync/internal/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check API credentials and the mapping store",
	Long: `Verify checks that both tracker APIs accept the configured credentials
and that the mapping store can be opened. No data is modified.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source := megaplan.New(cfg.Megaplan, cfg.Sync.PageSize, log)
	if err := source.Verify(ctx); err != nil {
		return fmt.Errorf("megaplan: %w", err)
	}
	fmt.Println("megaplan: OK")

	sink := openproject.New(cfg.OpenProject, log)
	if err := sink.Verify(ctx); err != nil {
		return fmt.Errorf("openproject: %w", err)
	}
	fmt.Println("openproject: OK")

	st, err := store.Open(cfg.StateDB, true)
	if err != nil {
		return fmt.Errorf("mapping store %s: %w", cfg.StateDB, err)
	}
	defer st.Close()
	fmt.Printf("mapping store %s: OK\n", cfg.StateDB)

	fmt.Printf("configured projects: %d\n", len(cfg.Projects))
	return nil
}
