package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalani-ai/kalani/pkg/models"
)

var submitPriority int

var submitCmd = &cobra.Command{
	Use:   "submit <description>",
	Short: "Submit a task for delegation",
	Long: `Submit a task description to the engine.

The description is matched against the routing rules to infer the
capabilities the task needs, then delegated to the best-qualified
worker. A task no worker qualifies for is kept in blocked status and
can be retried later with 'kalani redelegate'.

Examples:
  kalani submit "deploy the api service to staging"
  kalani submit run the integration tests`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().IntVarP(&submitPriority, "priority", "p", 0, "Override the task priority (lower is more urgent)")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	description := strings.Join(args, " ")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	var task *models.Task
	if cmd.Flags().Changed("priority") {
		task, err = a.orch.SubmitWithPriority(context.Background(), description, submitPriority)
	} else {
		task, err = a.orch.Submit(context.Background(), description)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Task %s: %s\n", color.New(color.Bold).Sprint(task.ID), statusColor(task.Status))
	if task.Status == models.TaskStatusBlocked {
		fmt.Println("No eligible worker. The task is kept; adjust the catalog or rules and run:")
		fmt.Printf("  kalani redelegate %s\n", task.ID)
	}
	return nil
}
