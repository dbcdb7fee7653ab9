package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gocortexio/gcgit/internal/config"
	"github.com/gocortexio/gcgit/internal/gitrepo"
	"github.com/gocortexio/gcgit/internal/modules"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the instance's stored objects and uncommitted changes",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runStatus(instanceDir())
	},
}

func runStatus(dir string) error {
	cfg, err := config.LoadInstance(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Instance: %s\n\n", cfg.InstanceName)

	table := tablewriter.NewTable(os.Stdout)
	table.Header("Module", "Content Type", "Objects")
	for _, mod := range modules.NewRegistry().All() {
		for _, ct := range mod.ContentTypes() {
			table.Append(mod.ID(), ct.Name, fmt.Sprintf("%d", countObjects(dir, mod.ID(), ct.Name)))
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render status table: %w", err)
	}

	repo, err := gitrepo.Open(dir)
	if err != nil {
		return err
	}
	dirty, err := repo.DirtyPaths()
	if err != nil {
		return err
	}
	if len(dirty) == 0 {
		fmt.Println("\nWorking tree clean.")
		return nil
	}

	sort.Strings(dirty)
	fmt.Printf("\n%d uncommitted change(s):\n", len(dirty))
	for _, p := range dirty {
		fmt.Printf("  %s\n", color.YellowString(p))
	}
	return nil
}

// countObjects counts the stored YAML files of one content type.
func countObjects(dir, moduleID, ctName string) int {
	entries, err := os.ReadDir(filepath.Join(dir, moduleID, ctName))
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			n++
		}
	}
	return n
}
