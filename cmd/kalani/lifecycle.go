package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalani-ai/kalani/pkg/models"
)

var completeCmd = &cobra.Command{
	Use:   "complete <task-id> [note]",
	Short: "Report a task as completed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportOutcome(args, models.TaskStatusCompleted)
	},
}

var failCmd = &cobra.Command{
	Use:   "fail <task-id> [note]",
	Short: "Report a task as failed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportOutcome(args, models.TaskStatusFailed)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id> [note]",
	Short: "Cancel a task",
	Long: `Cancel a pending, in-progress, or blocked task.

Cancelling a task that already reached a terminal status is an error;
terminal states never change.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		task, err := a.orch.Cancel(args[0], "operator", strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("Task %s: %s\n", task.ID, statusColor(task.Status))
		return nil
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <task-id> <text>",
	Short: "Append a progress note to a task",
	Long: `Append a progress annotation to a task's audit history without
changing its status.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.tracker.AppendNote(args[0], "operator", strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Printf("Note appended to %s\n", args[0])
		return nil
	},
}

var redelegateCmd = &cobra.Command{
	Use:   "redelegate <task-id>",
	Short: "Retry delegation for a blocked task",
	Long: `Retry delegation for a blocked task.

The task's capability requirements are recomputed from the current rule
set, so catalog or rule changes made since submission take effect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		task, err := a.orch.Redelegate(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Task %s: %s\n", task.ID, statusColor(task.Status))
		if task.Status == models.TaskStatusBlocked {
			fmt.Println("Still no eligible worker.")
		}
		return nil
	},
}

func reportOutcome(args []string, outcome models.TaskStatus) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, err := a.orch.OnResult(args[0], outcome, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Printf("Task %s: %s\n", task.ID, statusColor(task.Status))
	return nil
}
