// Package app provides the gcgit command tree.
package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gocortexio/gcgit/internal/config"
	"github.com/gocortexio/gcgit/internal/modules"
	"github.com/gocortexio/gcgit/internal/sync"
	"github.com/gocortexio/gcgit/internal/versions"
	"github.com/gocortexio/gcgit/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "gcgit",
	DisableAutoGenTag: true,
	Short:             "Configuration sync for Cortex platform instances",
	Long: `gcgit reconciles the configuration state of a remote security platform
instance into a git-versioned local directory, one YAML file per object,
with one commit per pull.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize(viper.GetBool("debug"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates the gcgit root command.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("instance", "i", ".", "Instance directory")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}
	if err := viper.BindPFlag("instance", rootCmd.PersistentFlags().Lookup("instance")); err != nil {
		logger.Errorf("Error binding instance flag: %v", err)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	for _, mod := range modules.NewRegistry().All() {
		rootCmd.AddCommand(newModuleCmd(mod))
	}

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			logger.Errorf("Error retrieving format flag: %v", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				logger.Errorf("Error formatting version info as JSON: %v", err)
				return
			}
			fmt.Println(string(output))
		} else {
			fmt.Printf("gcgit %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}

// instanceDir returns the instance directory from the --instance flag.
func instanceDir() string {
	return viper.GetString("instance")
}

// newManager loads the instance config and builds a sync manager for it.
func newManager() (sync.Manager, error) {
	dir := instanceDir()
	cfg, err := config.LoadInstance(dir)
	if err != nil {
		return nil, err
	}
	return sync.NewDefaultManager(dir, cfg, modules.NewRegistry()), nil
}
