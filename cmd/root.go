package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (bad config, fatal startup failure).
	ExitCodeError = 1
)

// rootCmd represents the base command for the scheduler binary. It is the
// entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mcp-scheduler",
	Short: "Tool-routing scheduler for MCP servers",
	Long: `mcp-scheduler registers MCP servers, indexes their tool catalogs into a
vector store, monitors server health in the background, and exposes an HTTP
API for registering servers and selecting the fastest healthy tool for a
given semantic cluster.`,
	// SilenceUsage prevents cobra from printing the usage message on errors
	// that are already handled (and logged) by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main to
// inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application. Called by
// main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcp-scheduler version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
