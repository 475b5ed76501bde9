// Package cli contains the commands of the reposearch binary
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Scalingo/sclng-repo-search/config"
	"github.com/Scalingo/sclng-repo-search/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	noColor bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reposearch",
	Short: "Search GitHub repositories",
	Long: `reposearch searches repositories through the GitHub REST API.

Example usage:
  reposearch search android              # list repositories matching "android"
  reposearch search --retries 2 android  # retry twice on network or data errors
  reposearch owner octocat               # list repositories of a user
  reposearch serve                       # expose the search over HTTP`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// ExecuteContext runs the command matching the program arguments.
// ctx is canceled on SIGINT or SIGTERM
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newSearchCmd(), newOwnerCmd(), newServeCmd())
}

func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}

	cfg = loaded
	logger.Setup(*cfg)
	return nil
}

func useColors() bool {
	if noColor {
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	return os.Getenv("TERM") != "dumb"
}
