package app

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gocortexio/gcgit/internal/config"
	"github.com/gocortexio/gcgit/internal/modules"
	"github.com/gocortexio/gcgit/internal/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the instance configuration, credentials and stored files",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runValidate(instanceDir())
	},
}

func runValidate(dir string) error {
	cfg, err := config.LoadInstance(dir)
	if err != nil {
		return err
	}

	registry := modules.NewRegistry()
	failures := 0
	for _, mod := range registry.All() {
		mc, err := cfg.Module(mod.ID())
		switch {
		case err == nil && !mc.Enabled:
			fmt.Printf("%s %s: disabled\n", color.YellowString("-"), mod.ID())
		case err == nil:
			fmt.Printf("%s %s: credentials resolved (fqdn %s)\n", color.GreenString("ok"), mod.ID(), mc.FQDN)
		default:
			var notConfigured *config.ModuleNotConfiguredError
			if errors.As(err, &notConfigured) {
				fmt.Printf("%s %s: not configured\n", color.YellowString("-"), mod.ID())
				continue
			}
			failures++
			fmt.Printf("%s %s: %v\n", color.RedString("fail"), mod.ID(), err)
		}
	}

	failures += validateStoredFiles(dir, registry)

	if failures > 0 {
		return fmt.Errorf("%d problem(s) found", failures)
	}
	return nil
}

// validateStoredFiles parses every stored object file and reports the ones
// that no longer deserialize.
func validateStoredFiles(dir string, registry *modules.Registry) int {
	fs := store.NewFileStore(dir)
	failures := 0
	for _, mod := range registry.All() {
		for _, ct := range mod.ContentTypes() {
			_, problems := fs.Snapshot(mod.ID(), ct.Name, ct.IDField)
			for _, p := range problems {
				failures++
				fmt.Printf("%s %v\n", color.RedString("fail"), p)
			}
		}
	}
	return failures
}
