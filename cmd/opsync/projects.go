// Projects command lists target projects to help write the config's
// project mappings.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/opsync/internal/openproject"
)

var flagProjectsJSON bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List OpenProject projects visible to the configured account",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func init() {
	projectsCmd.Flags().BoolVar(&flagProjectsJSON, "json", false, "output as JSON")
}

func runProjects(cmd *cobra.Command, args []string) error {
	client := openproject.New(cfg.OpenProject, log)
	projects, err := client.ListProjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if flagProjectsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(projects)
	}

	for _, p := range projects {
		fmt.Printf("%d\t%s\t%s\n", p.ID, p.Identifier, p.Name)
	}
	return nil
}
