// Package main provides the entry point for the assoc CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/assoc/cmd/assoc/commands"
	"github.com/Sumatoshi-tech/assoc/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "assoc",
		Short: "Exercise and inspect the hash map and tree map implementations",
		Long: `assoc drives the hash map and red-black tree map with seeded workloads and
scripted scenarios.

Commands:
  bench     Random workload checked against a builtin map
  replay    Scripted scenario with golden trace comparison
  chart     HTML chart of hash map bucket shapes`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP(commands.ConfigFlag, "c", "", "configuration file (default ./assoc.yaml)")

	rootCmd.AddCommand(commands.NewBenchCommand())
	rootCmd.AddCommand(commands.NewReplayCommand())
	rootCmd.AddCommand(commands.NewChartCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "assoc %s\n", version.String())
		},
	}
}
