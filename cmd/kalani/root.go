package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kalani",
	Short: "Task delegation and status tracking engine",
	Long: `Kalani routes incoming tasks to the best-qualified worker and tracks
their lifecycle from submission to completion.

Workers and routing rules are declared in YAML. Each submitted task is
matched against the rule set to infer the capabilities it needs, then
delegated to the highest-scoring worker in the catalog. Every status
change is recorded durably and mirrored to an append-only audit stream.

Typical flow:
  kalani init                     # set up a project
  kalani submit "deploy the api"  # route and delegate a task
  kalani status                   # see where everything stands
  kalani complete <id>            # report an outcome`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(redelegateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(versionCmd)
}
