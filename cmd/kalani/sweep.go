package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kalani-ai/kalani/internal/orchestrator"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recover stale in-progress tasks",
	Long: `Scan for in_progress tasks whose last update is older than the
configured stale window and move them to blocked, so work lost to a
crashed or wedged executor resurfaces. Recovered tasks can be retried
with 'kalani redelegate'.

The stale window and the schedule used by long-running deployments are
set under 'recovery' in the configuration.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	s := orchestrator.NewSweeper(a.orch, a.cfg.Recovery.StaleWindow)
	swept, err := s.SweepOnce()
	if err != nil {
		return err
	}
	if swept == 0 {
		fmt.Println("No stale tasks.")
		return nil
	}
	fmt.Printf("Recovered %d stale task(s). Run 'kalani status --status blocked' to review.\n", swept)
	return nil
}
