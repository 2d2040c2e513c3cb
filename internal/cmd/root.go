// Package cmd implements feedmill's command-line surface with
// github.com/spf13/cobra, the same library go-i2p-newsgo's cmd package
// wraps around config loading and sub-command dispatch.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// version is overridden at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "feedmill",
	Short: "Fetch, extract, and republish web pages that don't have a feed of their own",
	// Running feedmill with no sub-command serves, per the CLI contract:
	// "run the server (default)".
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute runs the command tree. Called by cmd/feedmill's main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteWithArgs runs the command tree against an explicit argument list
// instead of os.Args, for tests.
func ExecuteWithArgs(args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the TOML config file (required)")
}
