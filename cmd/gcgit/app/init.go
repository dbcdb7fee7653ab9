package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gocortexio/gcgit/internal/config"
	"github.com/gocortexio/gcgit/internal/gitrepo"
	"github.com/gocortexio/gcgit/internal/modules"
	"github.com/gocortexio/gcgit/pkg/logger"
)

// gitignoreContent keeps credentials and lock artifacts out of the
// repository.
const gitignoreContent = `config.toml
.gcgit.lock
.gcgit.lock.owner
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new instance directory",
	Long: `Creates the instance directory with a config.toml template, one
subdirectory per module content type, and an initialized git repository.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runInit(instanceDir())
	},
}

func runInit(dir string) error {
	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("instance already initialized: %s exists", configPath)
	}

	registry := modules.NewRegistry()
	for _, mod := range registry.All() {
		for _, ct := range mod.ContentTypes() {
			ctDir := filepath.Join(dir, mod.ID(), ct.Name)
			if err := os.MkdirAll(ctDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", ctDir, err)
			}
		}
	}

	instanceName := filepath.Base(absOrSelf(dir))
	if err := config.WriteTemplate(dir, instanceName, registry.IDs()); err != nil {
		return err
	}

	gitignorePath := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0o644); err != nil {
		return fmt.Errorf("failed to write .gitignore: %w", err)
	}

	repo, err := gitrepo.Open(dir)
	if err != nil {
		return err
	}
	if err := repo.Stage([]string{".gitignore"}); err != nil {
		return err
	}
	if _, err := repo.Commit(fmt.Sprintf("Initialise instance %s", instanceName)); err != nil {
		return err
	}

	logger.Infof("Initialized instance %s in %s", instanceName, dir)
	logger.Infof("Edit %s to configure module credentials", configPath)
	return nil
}

func absOrSelf(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
