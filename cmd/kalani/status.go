package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalani-ai/kalani/internal/audit"
	"github.com/kalani-ai/kalani/internal/state"
	"github.com/kalani-ai/kalani/pkg/models"
)

var (
	statusFilter  string
	statusMetrics bool
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show task state",
	Long: `Display the current state of tracked tasks.

With no argument, lists every task ordered by priority. With a task id,
shows that task's full audit history.

Examples:
  kalani status                   # all tasks
  kalani status a1b2c3d4          # one task with history
  kalani status --status blocked  # only blocked tasks
  kalani status --metrics         # per-worker performance summary`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, in_progress, completed, failed, blocked, cancelled)")
	statusCmd.Flags().BoolVar(&statusMetrics, "metrics", false, "Show per-worker performance metrics from the audit stream")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		return displayTask(a, args[0])
	}
	if statusMetrics {
		return displayMetrics(a)
	}
	return displayTaskList(a)
}

func displayTask(a *app, id string) error {
	task, err := a.registry.GetTask(id)
	if err != nil {
		return err
	}

	fmt.Printf("Task %s\n", color.New(color.Bold).Sprint(task.ID))
	fmt.Printf("  Description: %s\n", task.Description)
	fmt.Printf("  Status:      %s\n", statusColor(task.Status))
	fmt.Printf("  Priority:    %d\n", task.Priority)
	if task.AssignedWorker != "" {
		fmt.Printf("  Worker:      %s\n", task.AssignedWorker)
	}
	fmt.Printf("  Created:     %s ago\n", formatDuration(time.Since(task.CreatedAt)))
	fmt.Printf("  Updated:     %s ago\n", formatDuration(time.Since(task.UpdatedAt)))

	fmt.Println("\nHistory:")
	for _, e := range task.History {
		line := fmt.Sprintf("  %s  %-14s %s",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Event, e.Actor)
		if e.FromStatus != "" || e.ToStatus != "" {
			line += fmt.Sprintf("  %s -> %s", e.FromStatus, e.ToStatus)
		}
		if e.Note != "" {
			line += "  " + e.Note
		}
		fmt.Println(line)
	}
	return nil
}

func displayTaskList(a *app) error {
	var f state.Filter
	if statusFilter != "" {
		s := models.TaskStatus(statusFilter)
		if !s.Valid() {
			return fmt.Errorf("unknown status %q", statusFilter)
		}
		f.Statuses = []models.TaskStatus{s}
	}

	tasks, err := a.registry.ListTasks(f)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks. Run 'kalani submit <description>' to start.")
		return nil
	}

	fmt.Printf("%-10s %-12s %4s  %-10s %s\n", "ID", "STATUS", "PRI", "WORKER", "DESCRIPTION")
	for _, t := range tasks {
		worker := t.AssignedWorker
		if worker == "" {
			worker = "-"
		}
		fmt.Printf("%-10s %-21s %4d  %-10s %s\n",
			t.ID, statusColor(t.Status), t.Priority, worker, truncate(t.Description, 60))
	}
	return nil
}

func displayMetrics(a *app) error {
	summary, err := audit.Replay(a.cfg.LogsDir())
	if err != nil {
		return err
	}
	if len(summary.Workers) == 0 {
		fmt.Println("No delegations recorded yet.")
		return nil
	}

	fmt.Printf("Audit stream: %d events\n\n", summary.TotalEvents)
	fmt.Printf("%-12s %10s %10s %8s %9s %12s\n", "WORKER", "DELEGATED", "COMPLETED", "FAILED", "SUCCESS", "AVG DURATION")
	for _, w := range summary.Workers {
		avg := "-"
		if w.AvgDuration > 0 {
			avg = formatDuration(w.AvgDuration)
		}
		rate := "-"
		if w.Completed+w.Failed > 0 {
			rate = fmt.Sprintf("%.0f%%", w.SuccessRate*100)
		}
		fmt.Printf("%-12s %10d %10d %8d %9s %12s\n",
			w.WorkerID, w.Delegations, w.Completed, w.Failed, rate, avg)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// truncate shortens s to at most n runes. Slicing on runes keeps
// multi-byte descriptions from being cut mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
