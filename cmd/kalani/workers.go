package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalani-ai/kalani/internal/config"
)

var workersWatch bool

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Show the worker catalog and routing rules",
	Long: `Display the loaded worker catalog and routing rule set.

With --watch, keeps running and prints a notice when either file
changes on disk. Catalog changes apply on the next engine start; there
is no hot reload.`,
	RunE: runWorkers,
}

func init() {
	workersCmd.Flags().BoolVar(&workersWatch, "watch", false, "Watch catalog files and report changes")
}

func runWorkers(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Workers (%d):\n", a.catalog.Size())
	for _, w := range a.catalog.All() {
		fmt.Printf("  %-12s caps: %-30s priority: %d\n",
			color.CyanString(w.ID), strings.Join(w.Capabilities, ", "), w.Priority)
		if len(w.ToolPermissions) > 0 {
			fmt.Printf("  %-12s tools: %s\n", "", strings.Join(w.ToolPermissions, ", "))
		}
	}

	ruleSet, err := config.LoadRules(a.cfg.Paths.Rules)
	if err != nil {
		return err
	}
	fmt.Printf("\nRules (%d):\n", len(ruleSet))
	for _, r := range ruleSet {
		fmt.Printf("  [%d] /%s/ -> %s\n", r.Priority, r.Pattern, strings.Join(r.Capabilities, ", "))
	}

	if !workersWatch {
		return nil
	}

	fmt.Println("\nWatching for catalog changes (ctrl-c to stop)...")
	stop, err := config.Watch([]string{a.cfg.Paths.Workers, a.cfg.Paths.Rules}, func(path string) {
		fmt.Printf("%s changed; restart the engine to apply.\n", path)
	})
	if err != nil {
		return err
	}
	defer stop()

	select {} // runs until interrupted
}
