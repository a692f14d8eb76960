// metadata-apply applies extracted metadata from a stored session to Box
// files outside of a Camunda process.
//
// Usage:
//
//	metadata-apply run --session <id> [--source redis|postgres] [--timeout 60s]
//	                   [--normalize-keys] [--filter-placeholders] [--debug]
//	metadata-apply whoami
//	metadata-apply activities [--out configs/activity-registry.json]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"box-metadata-workers/internal/common/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "metadata-apply",
	Short: "Apply extracted metadata to Box files",
	Long:  "metadata-apply reads the extraction results of a session and writes them\nto Box as metadata template or properties instances.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "Path to config YAML (default: configs/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(activitiesCmd)
	rootCmd.Version = version
}

func loadConfig() (*config.Config, error) {
	if rootFlags.configPath != "" {
		return config.LoadFromFile(rootFlags.configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
